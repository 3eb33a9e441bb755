// Package intent holds the static routing vocabulary: button-option to
// node mappings, keyword intent rules, and the payment keyword set. These
// are immutable data tables, not state machines.
package intent

import (
	"regexp"
	"strings"

	"github.com/voltgrid/supportbot/internal/textutil"
)

// optionNodes maps normalized button-label text directly to flow nodes so
// button clicks never go through intent detection.
var optionNodes = map[string]string{
	"report error code":     "error_reporting",
	"wallet related issues": "wallet_issues",
	"troubleshoot issue":    "troubleshooting",
	"maintenance guide":     "maintenance",
	"contact support":       "support",
	"back to menu":          "start",
	"other error code":      "other_error_code",
	// Wallet sub-options.
	"balance not updating": "balance_not_updating",
	"payment failed":       "payment_failed",
	"refund issues":        "refund_issues",
	"transaction history":  "transaction_history",
	// Troubleshooting sub-options.
	"charging not starting": "troubleshooting",
	"connection issues":     "troubleshooting",
	"display problems":      "troubleshooting",
	"physical damage":       "troubleshooting",
	// Follow-up feedback options.
	"✅ yes, issue resolved":      "solution_resolved",
	"yes, issue resolved":        "solution_resolved",
	"✅ yes, this helped":         "solution_resolved",
	"yes, this helped":           "solution_resolved",
	"yes":                        "solution_resolved",
	"❌ no, still having issues":  "solution_not_resolved",
	"no, still having issues":    "solution_not_resolved",
	"❌ no, still have questions": "solution_not_resolved",
	"no, still have questions":   "solution_not_resolved",
	"❌ no, still need help":      "solution_not_resolved",
	"no, still need help":        "solution_not_resolved",
	"❌ no, need more guidance":   "solution_not_resolved",
	"no, need more guidance":     "solution_not_resolved",
	"no":                         "solution_not_resolved",
	"no, i'm all set":            "done_chatting",
	"no i'm all set":             "done_chatting",
	"i'm all set":                "done_chatting",
	"all set":                    "done_chatting",
	"report another error":       "report_another_error",
}

// errorOptionLabelRe recognizes error-option button labels such as
// "ER001 - Gun Temperature". These are deliberately not routed through the
// option table so the text falls through to diagnostic detection. Narrow
// special case tied to that one button format.
var errorOptionLabelRe = regexp.MustCompile(`^er\d{3,4}\s*-`)

// OptionNode maps a button label to its flow node. The second return is
// false when the label is unknown or is an error-option label.
func OptionNode(optionText string) (string, bool) {
	normalized := textutil.Normalize(optionText)
	if errorOptionLabelRe.MatchString(normalized) {
		return "", false
	}
	node, ok := optionNodes[normalized]
	return node, ok
}

// Rule pairs an intent with its keyword vocabulary. Rules are scanned in
// declaration order: the order is the tie-break, deliberately explicit
// rather than relying on map iteration.
type Rule struct {
	Intent   string
	Keywords []string
}

var rules = []Rule{
	{"greeting", []string{"hello", "hi", "hey", "good morning", "good afternoon", "greetings"}},
	{"error_report", []string{"error", "fault", "problem", "issue", "showing", "displaying"}},
	{"troubleshoot", []string{"troubleshoot", "diagnose", "fix", "solve", "repair"}},
	{"wallet", []string{"wallet", "balance", "refund", "transaction", "payment failed", "money", "recharge", "wallet charge", "add money"}},
	{"maintenance", []string{"maintenance", "service", "inspection", "check"}},
	{"support", []string{"help", "support", "assistance", "contact"}},
	{"status", []string{"status", "working", "operational", "running"}},
	{"installation", []string{"install", "setup", "configure", "connect"}},
	{"network", []string{"network", "wifi", "connection", "internet", "ocpp", "communication"}},
	{"payment", []string{"payment", "billing", "cost", "price", "pay"}},
	{"usage", []string{"how to charge", "charge car", "charge vehicle", "start charging", "charging guide", "how to", "guide", "instructions", "manual", "how to use"}},
}

// intentNodes maps a detected intent to its flow node.
var intentNodes = map[string]string{
	"greeting":     "start",
	"error_report": "error_reporting",
	"troubleshoot": "troubleshooting",
	"wallet":       "wallet_issues",
	"maintenance":  "maintenance",
	"support":      "support",
	"status":       "status_check",
	"installation": "installation_guide",
	"network":      "network_help",
	"payment":      "wallet_issues",
	"usage":        "user_guide",
}

// Detect returns the first intent whose keyword list has a substring match
// against the normalized message, or "" when none matches.
func Detect(message string) string {
	if message == "" {
		return ""
	}
	normalized := textutil.Normalize(message)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(normalized, kw) {
				return rule.Intent
			}
		}
	}
	return ""
}

// NodeFor maps an intent to its flow node, defaulting to start for
// unmapped intents.
func NodeFor(intent string) string {
	if node, ok := intentNodes[intent]; ok {
		return node
	}
	return "start"
}

// PaymentKeywords is the vocabulary for the typo-tolerant payment check.
var PaymentKeywords = []string{"payment", "wallet", "balance", "refund", "billing"}
