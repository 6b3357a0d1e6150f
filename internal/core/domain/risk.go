package domain

// RiskLevel is the severity of a clause's potential downside.
type RiskLevel string

// Available risk levels.
const (
	RiskHigh    RiskLevel = "High"
	RiskMedium  RiskLevel = "Medium"
	RiskLow     RiskLevel = "Low"
	RiskUnknown RiskLevel = "Unknown"
)

// String returns the string representation.
func (l RiskLevel) String() string {
	return string(l)
}

// RiskTag is a rule-derived classification of a piece of clause text.
// Tags are computed on demand and never stored.
type RiskTag struct {
	Level  RiskLevel `json:"level"`
	Reason string    `json:"reason"`
}
