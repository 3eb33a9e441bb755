// Package catalog holds the fault-record catalog and the three-stage
// detection algorithm: pattern extraction with exact lookup, fuzzy title
// matching, then keyword overlap.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/voltgrid/supportbot/internal/domain"
	"github.com/voltgrid/supportbot/internal/fuzzy"
	"github.com/voltgrid/supportbot/internal/textutil"
)

// minKeywordMatches guards the keyword-overlap stage against single-word
// coincidental overlap.
const minKeywordMatches = 2

// record mirrors the persisted catalog format. The misspelled "Tittle"
// field name is part of the format and must be preserved for compatibility
// with existing content files.
type record struct {
	ErrorCode   string   `json:"Error_Code"`
	Tittle      string   `json:"Tittle"`
	Description string   `json:"Description"`
	Solution    []string `json:"Solution"`
}

// FaultRecord is one immutable catalog entry.
type FaultRecord struct {
	Code        string
	Title       string
	Description string
	Solutions   []string

	// Normalized title and description, precomputed at load time for the
	// fuzzy and keyword stages.
	titleNorm string
	descNorm  string
}

// snapshot is one fully-built view of the catalog. Reloads build a new
// snapshot and swap it in atomically, so readers never observe a half-built
// index.
type snapshot struct {
	records []FaultRecord
	index   map[string]*FaultRecord
	titles  []string
}

// Catalog is the in-memory fault catalog. Detection holds no locks;
// concurrent reads against the loaded snapshot are safe.
type Catalog struct {
	current atomic.Pointer[snapshot]
	logger  *slog.Logger
}

// New returns an empty catalog. Detect on an empty catalog always misses.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{logger: logger}
	c.current.Store(&snapshot{index: map[string]*FaultRecord{}})
	return c
}

// Load reads the catalog file at path and atomically replaces the current
// snapshot. On error the previous snapshot stays in place and the caller
// decides whether to continue degraded.
func (c *Catalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", path, err)
	}

	var raw []record
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}

	snap := buildSnapshot(raw)
	c.current.Store(snap)

	c.logger.Info("fault catalog loaded",
		slog.String("path", path),
		slog.Int("records", len(snap.records)))
	return nil
}

func buildSnapshot(raw []record) *snapshot {
	snap := &snapshot{
		records: make([]FaultRecord, 0, len(raw)),
		index:   make(map[string]*FaultRecord, len(raw)),
		titles:  make([]string, 0, len(raw)),
	}
	for _, r := range raw {
		snap.records = append(snap.records, FaultRecord{
			Code:        strings.ToUpper(strings.TrimSpace(r.ErrorCode)),
			Title:       r.Tittle,
			Description: r.Description,
			Solutions:   r.Solution,
			titleNorm:   textutil.Normalize(r.Tittle),
			descNorm:    textutil.Normalize(r.Description),
		})
	}
	for i := range snap.records {
		rec := &snap.records[i]
		snap.titles = append(snap.titles, rec.Title)
		// Records without a code stay out of the exact index but remain in
		// the fuzzy and keyword pools.
		if rec.Code != "" {
			snap.index[rec.Code] = rec
		}
	}
	return snap
}

// Len returns the number of loaded records.
func (c *Catalog) Len() int {
	return len(c.current.Load().records)
}

// Ready reports whether the catalog holds any records.
func (c *Catalog) Ready() bool {
	return c.Len() > 0
}

// Detect resolves a fault from a raw message. Stages run strictly in order
// and the first hit short-circuits: pattern extraction with exact lookup,
// fuzzy title matching at the default threshold, then keyword overlap.
// Returns nil for empty input, an empty catalog, or no match.
func (c *Catalog) Detect(message string) *domain.Fault {
	snap := c.current.Load()
	if message == "" || len(snap.records) == 0 {
		return nil
	}

	if code := textutil.ExtractErrorCode(message); code != "" {
		if rec := snap.lookup(code); rec != nil {
			c.logger.Debug("fault matched by code pattern", slog.String("code", rec.Code))
			return rec.fault()
		}
	}

	normalized := textutil.Normalize(message)

	if rec := snap.matchTitle(normalized); rec != nil {
		c.logger.Debug("fault matched by title", slog.String("code", rec.Code))
		return rec.fault()
	}

	if rec := snap.matchKeywords(normalized); rec != nil {
		c.logger.Debug("fault matched by keywords", slog.String("code", rec.Code))
		return rec.fault()
	}

	return nil
}

// GetByCode looks up a fault by exact code, with the same ER-prefix toggle
// Detect uses.
func (c *Catalog) GetByCode(code string) *domain.Fault {
	rec := c.current.Load().lookup(code)
	if rec == nil {
		return nil
	}
	return rec.fault()
}

// lookup tries the code as given, then toggles the ER prefix: a bare
// numeric code also tries ER<code>, an ER-prefixed code also tries the
// numeric suffix.
func (s *snapshot) lookup(code string) *FaultRecord {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	if rec, ok := s.index[code]; ok {
		return rec
	}
	if !strings.HasPrefix(code, "ER") && isDigits(code) {
		if rec, ok := s.index["ER"+code]; ok {
			return rec
		}
	}
	if strings.HasPrefix(code, "ER") {
		if rec, ok := s.index[code[2:]]; ok {
			return rec
		}
	}
	return nil
}

func (s *snapshot) matchTitle(normalized string) *FaultRecord {
	matched := fuzzy.BestTitleMatch(normalized, s.titles, fuzzy.DefaultTitleThreshold)
	if matched == "" {
		return nil
	}
	// First record owning the matched title, in catalog order.
	for i := range s.records {
		if s.records[i].Title == matched {
			return &s.records[i]
		}
	}
	return nil
}

func (s *snapshot) matchKeywords(normalized string) *FaultRecord {
	keywords := textutil.Keywords(normalized)
	if len(keywords) == 0 {
		return nil
	}

	var best *FaultRecord
	bestScore := 0
	for i := range s.records {
		rec := &s.records[i]
		score := 0
		for _, kw := range keywords {
			if strings.Contains(rec.descNorm, kw) || strings.Contains(rec.titleNorm, kw) {
				score++
			}
		}
		if score > bestScore && score >= minKeywordMatches {
			bestScore = score
			best = rec
		}
	}
	return best
}

func (r *FaultRecord) fault() *domain.Fault {
	return &domain.Fault{
		Code:        r.Code,
		Title:       r.Title,
		Description: r.Description,
		Solutions:   r.Solutions,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
