package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// Fixed reasons for the two tags not produced by a rule.
const (
	ReasonNoClause      = "No clause available for risk analysis"
	ReasonNoRisk        = "No significant legal risk detected"
	ReasonInsufficient  = "Retrieved context was insufficient; switched to general knowledge"
	ReasonNoRelevantHit = "No relevant clause found in the document or knowledge base"
)

// RiskRule tags text that contains any of Phrases or matches Pattern.
// Phrases are lowercase and matched against whitespace-normalised text.
type RiskRule struct {
	Level   domain.RiskLevel
	Reason  string
	Phrases []string
	Pattern *regexp.Regexp
}

// Matches reports whether the rule applies to normalised, lowercased text.
func (r RiskRule) Matches(text string) bool {
	for _, p := range r.Phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return r.Pattern != nil && r.Pattern.MatchString(text)
}

// DefaultRiskRules returns the built-in rule table in priority order:
// every High rule, then Medium, then Low.
func DefaultRiskRules() []RiskRule {
	return []RiskRule{
		{Level: domain.RiskHigh, Reason: "Termination or action is permitted without notice",
			Phrases: []string{"without notice", "without prior notice"}},
		{Level: domain.RiskHigh, Reason: "Liability is not capped",
			Phrases: []string{"unlimited liability"}},
		{Level: domain.RiskHigh, Reason: "Offence is non-bailable",
			Phrases: []string{"non-bailable", "non bailable"}},
		{Level: domain.RiskHigh, Reason: "Provides for rigorous imprisonment",
			Phrases: []string{"rigorous imprisonment"}},
		{Level: domain.RiskHigh, Reason: "Agreement may be void from the outset",
			Phrases: []string{"void ab initio"}},
		{Level: domain.RiskHigh, Reason: "Contravention is punishable with imprisonment or fine",
			Pattern: regexp.MustCompile(`punishable\s+with\s+(imprisonment|fine)`)},
		{Level: domain.RiskHigh, Reason: "Overrides other provisions of the agreement",
			Pattern: regexp.MustCompile(`notwithstanding\s+anything`)},

		{Level: domain.RiskMedium, Reason: "Financial penalty imposed",
			Phrases: []string{"penalty"}},
		{Level: domain.RiskMedium, Reason: "Liquidated damages are payable",
			Phrases: []string{"liquidated damages"}},
		{Level: domain.RiskMedium, Reason: "One party decides at its sole discretion",
			Pattern: regexp.MustCompile(`at\s+the\s+sole\s+discretion`)},
		{Level: domain.RiskMedium, Reason: "Tax is deducted at source from payments",
			Phrases: []string{"tds shall be deducted"}},
		{Level: domain.RiskMedium, Reason: "Creates an obligation to pay or compensate",
			Pattern: regexp.MustCompile(`liable\s+to\s+(pay|compensate)`)},
		{Level: domain.RiskMedium, Reason: "Restricts competing work after the agreement ends",
			Phrases: []string{"non-compete", "non compete"}},

		{Level: domain.RiskLow, Reason: "Standard jurisdiction clause",
			Phrases: []string{"jurisdiction"}},
		{Level: domain.RiskLow, Reason: "Standard governing law clause",
			Phrases: []string{"governing law"}},
		{Level: domain.RiskLow, Reason: "Recital describing background",
			Phrases: []string{"whereas"}},
		{Level: domain.RiskLow, Reason: "Refers to an annexure",
			Phrases: []string{"annexure"}},
		{Level: domain.RiskLow, Reason: "Defines when the agreement takes effect",
			Phrases: []string{"effective date"}},
		{Level: domain.RiskLow, Reason: "Proviso qualifying a provision",
			Phrases: []string{"provided that"}},
	}
}

// RiskClassifier tags clause text using an ordered rule table.
// The first matching rule wins. Safe for concurrent use.
type RiskClassifier struct {
	rules []RiskRule
}

// NewRiskClassifier creates a classifier. With no rules, DefaultRiskRules is used.
func NewRiskClassifier(rules ...RiskRule) *RiskClassifier {
	if len(rules) == 0 {
		rules = DefaultRiskRules()
	}
	return &RiskClassifier{rules: rules}
}

// Classify returns the tag of the first rule matching text.
// Empty text is Unknown; unmatched text is Low.
func (c *RiskClassifier) Classify(text string) domain.RiskTag {
	normalised := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if normalised == "" {
		return domain.RiskTag{Level: domain.RiskUnknown, Reason: ReasonNoClause}
	}
	for _, r := range c.rules {
		if r.Matches(normalised) {
			return domain.RiskTag{Level: r.Level, Reason: r.Reason}
		}
	}
	return domain.RiskTag{Level: domain.RiskLow, Reason: ReasonNoRisk}
}
