package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	records := []record{
		{
			ErrorCode:   "ER001",
			Tittle:      "Gun Temperature Limit",
			Description: "The gun temperature exceeded the 90 degree threshold during charging.",
			Solution:    []string{"Remove the gun from the vehicle.", "Verify the gun's condition."},
		},
		{
			ErrorCode:   "ER015",
			Tittle:      "RFID Communication Fail",
			Description: "The RFID reader did not respond to the communication handshake.",
			Solution:    []string{"Restart the station.", "Check the RFID reader cabling."},
		},
		{
			ErrorCode:   "ER042",
			Tittle:      "OCPP Communication Error",
			Description: "Connection to the OCPP backend was lost due to a network failure.",
			Solution:    []string{"Check the network link.", "Verify OCPP endpoint settings."},
		},
		{
			ErrorCode:   "301",
			Tittle:      "Display Panel Fault",
			Description: "The display panel stopped updating and shows a frozen screen.",
			Solution:    []string{"Power-cycle the unit."},
		},
		{
			// No code: excluded from exact lookup, still searchable.
			ErrorCode:   "",
			Tittle:      "Cable Lock Stuck",
			Description: "The cable lock actuator is stuck and the cable cannot be released.",
			Solution:    []string{"Press the release button twice."},
		},
	}

	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.current.Store(buildSnapshot(records))
	return c
}

func writeCatalogFile(t *testing.T, records []record) string {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "error_codes.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalogFile(t, []record{
		{ErrorCode: "er001", Tittle: "Gun Temperature Limit", Description: "d", Solution: []string{"s"}},
		{ErrorCode: "", Tittle: "No Code Entry", Description: "d", Solution: nil},
	})

	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if c.Ready() {
		t.Fatal("empty catalog reports ready")
	}

	if err := c.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	// Codes are canonicalized to uppercase.
	if f := c.GetByCode("ER001"); f == nil || f.Code != "ER001" {
		t.Errorf("GetByCode(ER001) = %+v", f)
	}
	// Codeless records are not in the exact index.
	if f := c.GetByCode(""); f != nil {
		t.Errorf("GetByCode(\"\") = %+v, want nil", f)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := c.Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Load() of missing file returned nil error")
	}
	if c.Ready() {
		t.Error("catalog ready after failed load")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := c.Load(path); err == nil {
		t.Fatal("Load() of malformed file returned nil error")
	}
}

func TestLoad_ReplacesPreviousSnapshot(t *testing.T) {
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	first := writeCatalogFile(t, []record{
		{ErrorCode: "ER001", Tittle: "Gun Temperature Limit", Description: "d", Solution: nil},
	})
	if err := c.Load(first); err != nil {
		t.Fatal(err)
	}

	second := writeCatalogFile(t, []record{
		{ErrorCode: "ER099", Tittle: "New Fault", Description: "d", Solution: nil},
	})
	if err := c.Load(second); err != nil {
		t.Fatal(err)
	}

	if f := c.GetByCode("ER001"); f != nil {
		t.Errorf("old record survived reload: %+v", f)
	}
	if f := c.GetByCode("ER099"); f == nil {
		t.Error("new record missing after reload")
	}
}

func TestDetect_PatternStage(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		name     string
		message  string
		wantCode string
	}{
		{"er code in sentence", "I'm getting ER001 error", "ER001"},
		{"lowercase er code", "showing er015", "ER015"},
		{"error word form", "error 15 on the display", "ER015"},
		{"e prefix form", "E42 again", "ER042"},
		{"bare number only message", "301", "301"},
		{"bare number with context", "the screen is showing 301", "301"},
		{"prefix toggle numeric to er", "042 error", "ER042"},
		{"prefix toggle er to numeric", "ER301 fault", "301"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Detect(tt.message)
			if got == nil {
				t.Fatalf("Detect(%q) = nil, want code %s", tt.message, tt.wantCode)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Detect(%q).Code = %s, want %s", tt.message, got.Code, tt.wantCode)
			}
		})
	}
}

func TestDetect_TitleStage(t *testing.T) {
	c := testCatalog(t)

	got := c.Detect("gun temperature")
	if got == nil || got.Code != "ER001" {
		t.Fatalf("Detect(gun temperature) = %+v, want ER001", got)
	}

	got = c.Detect("rfid fail")
	if got == nil || got.Code != "ER015" {
		t.Fatalf("Detect(rfid fail) = %+v, want ER015", got)
	}

	// Codeless records are reachable through the title stage.
	got = c.Detect("cable lock stuck")
	if got == nil || got.Title != "Cable Lock Stuck" {
		t.Fatalf("Detect(cable lock stuck) = %+v", got)
	}
}

func TestDetect_KeywordStage(t *testing.T) {
	c := testCatalog(t)

	// No code, no close title, but two keywords hit one description.
	got := c.Detect("my charger lost the backend network connection somehow")
	if got == nil || got.Code != "ER042" {
		t.Fatalf("Detect() = %+v, want ER042 via keywords", got)
	}

	// A single keyword is not enough.
	if got := c.Detect("something about network maybe"); got != nil && got.Code == "ER042" {
		// "network" alone must not match; any hit here would have to come
		// from another stage.
		t.Fatalf("single keyword matched: %+v", got)
	}
}

func TestDetect_NoMatch(t *testing.T) {
	c := testCatalog(t)

	for _, msg := range []string{"", "what is the meaning of life?", "thanks for the help"} {
		if got := c.Detect(msg); got != nil {
			t.Errorf("Detect(%q) = %+v, want nil", msg, got)
		}
	}
}

func TestDetect_EmptyCatalog(t *testing.T) {
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if got := c.Detect("ER001"); got != nil {
		t.Errorf("Detect on empty catalog = %+v, want nil", got)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	c := testCatalog(t)

	msg := "I'm getting ER001 error"
	first := c.Detect(msg)
	second := c.Detect(msg)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Detect not idempotent: %+v vs %+v", first, second)
	}
}

func TestDetect_PrefixSymmetry(t *testing.T) {
	c := testCatalog(t)

	a := c.Detect("042 error")
	b := c.Detect("ER042")
	if a == nil || b == nil {
		t.Fatalf("Detect returned nil: %+v, %+v", a, b)
	}
	if a.Code != b.Code {
		t.Errorf("prefix symmetry broken: %q vs %q", a.Code, b.Code)
	}
}

func TestDetect_FlattenedView(t *testing.T) {
	c := testCatalog(t)

	got := c.Detect("ER001")
	if got == nil {
		t.Fatal("Detect(ER001) = nil")
	}
	if got.Code != "ER001" || got.Title != "Gun Temperature Limit" ||
		got.Description == "" || len(got.Solutions) != 2 {
		t.Errorf("flattened view incomplete: %+v", got)
	}
}
