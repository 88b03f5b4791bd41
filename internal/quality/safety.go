package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/skillcheck/backend/internal/models"
)

// SafetyViolation identifies which check failed, on which field, and why.
// The generation orchestrator treats any violation as grounds for
// regeneration; the filter itself never regenerates.
type SafetyViolation struct {
	Check  string
	Field  string
	Detail string
}

func (v *SafetyViolation) Error() string {
	return fmt.Sprintf("content safety: %s check failed on %s: %s", v.Check, v.Field, v.Detail)
}

// SafetyFilter runs three independent deterministic checks over every
// text field of a question: profanity, bias phrasing, and unattributed
// quotations. Safe for concurrent use.
type SafetyFilter struct {
	denylist    []string
	biasPattern *regexp.Regexp
	quoteSpan   *regexp.Regexp
	attribution *regexp.Regexp
}

func NewSafetyFilter() *SafetyFilter {
	return &SafetyFilter{
		denylist: []string{
			"damn", "hell no", "crap", "stupid idiot", "shut up",
			"moron", "dumbass", "bullshit", "screw you", "bastard",
		},
		// Protected-attribute comparatives: "which gender is smarter",
		// "what race is better at", and similar stereotype framings.
		biasPattern: regexp.MustCompile(
			`(?i)(which|what)\s+(gender|race|culture|religion|ethnicity|nationality)\s+(is|are)\s+(better|worse|smarter|superior|inferior|best|worst)`),
		// A quoted span long enough to be a real quotation rather than
		// a quoted term.
		quoteSpan: regexp.MustCompile(`["\x{201C}][^"\x{201D}]{20,}["\x{201D}]`),
		attribution: regexp.MustCompile(
			`(?i)(source:|according to|attributed to|\(\d{4}\)|cited from|[-\x{2014}]\s*[A-Z][a-z]+)`),
	}
}

// CheckProfanity returns a violation if any denylist entry appears in
// text. First match short-circuits.
func (f *SafetyFilter) CheckProfanity(field, text string) *SafetyViolation {
	lower := strings.ToLower(text)
	for _, word := range f.denylist {
		if strings.Contains(lower, word) {
			return &SafetyViolation{Check: "profanity", Field: field, Detail: fmt.Sprintf("contains %q", word)}
		}
	}
	return nil
}

// CheckBias flags stereotype-indicating comparative phrasing rather than
// silently passing it through.
func (f *SafetyFilter) CheckBias(field, text string) *SafetyViolation {
	if m := f.biasPattern.FindString(text); m != "" {
		return &SafetyViolation{Check: "bias", Field: field, Detail: fmt.Sprintf("stereotyping phrase %q", m)}
	}
	return nil
}

// CheckCopyright flags a direct quotation that has no adjacent
// attribution marker. Properly attributed quotes pass.
func (f *SafetyFilter) CheckCopyright(field, text string) *SafetyViolation {
	if f.quoteSpan.MatchString(text) && !f.attribution.MatchString(text) {
		return &SafetyViolation{Check: "copyright", Field: field, Detail: "quotation without attribution"}
	}
	return nil
}

// ValidateQuestion runs all three checks across all text fields and
// returns the first failure found. Check order: profanity, then bias,
// then copyright; within each check, the fields in order stem, choices,
// explanation.
func (f *SafetyFilter) ValidateQuestion(q *models.CandidateQuestion) error {
	fields := textFields(q)

	for _, tf := range fields {
		if v := f.CheckProfanity(tf.name, tf.text); v != nil {
			return v
		}
	}
	for _, tf := range fields {
		if v := f.CheckBias(tf.name, tf.text); v != nil {
			return v
		}
	}
	for _, tf := range fields {
		if v := f.CheckCopyright(tf.name, tf.text); v != nil {
			return v
		}
	}
	return nil
}

type textField struct {
	name string
	text string
}

func textFields(q *models.CandidateQuestion) []textField {
	fields := []textField{{"stem", q.Stem}}
	for i, c := range q.Choices {
		fields = append(fields, textField{fmt.Sprintf("choice %d", i+1), c})
	}
	if q.Explanation != "" {
		fields = append(fields, textField{"explanation", q.Explanation})
	}
	return fields
}
