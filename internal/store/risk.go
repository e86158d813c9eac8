package store

import "github.com/careplanner/backend/pkg/model"

const (
	minRiskScore = 0
	maxRiskScore = 100
)

// RiskPolicy maps a vital status to the risk score delta it applies.
// Statuses absent from the map leave the score unchanged.
type RiskPolicy map[model.VitalStatus]int

// DefaultRiskPolicy returns the demo step function: Critical +25, High +15,
// Elevated +5, Normal -5
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		model.VitalStatusCritical: 25,
		model.VitalStatusHigh:     15,
		model.VitalStatusElevated: 5,
		model.VitalStatusNormal:   -5,
	}
}

// Apply returns score adjusted for status, clamped to [0,100]
func (p RiskPolicy) Apply(score int, status model.VitalStatus) int {
	return clampRisk(score + p[status])
}

func clampRisk(score int) int {
	if score < minRiskScore {
		return minRiskScore
	}
	if score > maxRiskScore {
		return maxRiskScore
	}
	return score
}
