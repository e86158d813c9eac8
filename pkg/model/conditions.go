package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxConditions is the largest number of condition labels a patient may carry
	MaxConditions = 10
	// MaxConditionLength is the longest accepted condition label
	MaxConditionLength = 30
)

var (
	ErrConditionLimitReached = fmt.Errorf("maximum of %d conditions reached", MaxConditions)
	ErrConditionTooLong      = fmt.Errorf("condition name too long (max %d chars)", MaxConditionLength)
	ErrConditionInvalidChars = errors.New("only letters, numbers, spaces & hyphens allowed")
	ErrConditionIndex        = errors.New("condition index out of range")
)

var conditionPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-']+$`)

// ConditionQuotaError is returned when a batch would exceed the remaining slots
type ConditionQuotaError struct {
	Available int
}

func (e *ConditionQuotaError) Error() string {
	return fmt.Sprintf("You can only add %d more condition(s).", e.Available)
}

// MergeConditions validates a comma separated input and appends the new labels
// to existing. The batch is applied entirely or not at all; existing is never
// modified.
func MergeConditions(existing []string, input string) ([]string, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return append([]string{}, existing...), nil
	}

	if len(existing) >= MaxConditions {
		return nil, ErrConditionLimitReached
	}
	available := MaxConditions - len(existing)

	var candidates []string
	for _, part := range strings.Split(raw, ",") {
		if c := strings.TrimSpace(part); c != "" {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) > available {
		return nil, &ConditionQuotaError{Available: available}
	}

	var additions []string
	for _, candidate := range candidates {
		if err := checkCondition(candidate); err != nil {
			return nil, err
		}
		if containsFold(existing, candidate) || containsFold(additions, candidate) {
			continue
		}
		additions = append(additions, candidate)
	}

	if len(additions) > available {
		return nil, &ConditionQuotaError{Available: available}
	}

	merged := make([]string, 0, len(existing)+len(additions))
	merged = append(merged, existing...)
	return append(merged, additions...), nil
}

// ValidateConditions applies the label rules of MergeConditions to a full
// list, as given when a patient is registered. Labels are trimmed, blanks and
// case-insensitive duplicates dropped; a list over the limit is rejected.
func ValidateConditions(conditions []string) ([]string, error) {
	out := NormalizeConditions(conditions)
	if len(out) > MaxConditions {
		return nil, &ConditionQuotaError{Available: MaxConditions}
	}
	for _, c := range out {
		if err := checkCondition(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkCondition(label string) error {
	if len(label) > MaxConditionLength {
		return ErrConditionTooLong
	}
	if !conditionPattern.MatchString(label) {
		return ErrConditionInvalidChars
	}
	return nil
}

// RemoveCondition returns a copy of conditions without the label at index
func RemoveCondition(conditions []string, index int) ([]string, error) {
	if index < 0 || index >= len(conditions) {
		return nil, ErrConditionIndex
	}
	out := make([]string, 0, len(conditions)-1)
	out = append(out, conditions[:index]...)
	return append(out, conditions[index+1:]...), nil
}

// NormalizeConditions trims labels and drops empty and case-insensitively
// duplicated entries, keeping first occurrences in order
func NormalizeConditions(conditions []string) []string {
	out := make([]string, 0, len(conditions))
	for _, c := range conditions {
		c = strings.TrimSpace(c)
		if c == "" || containsFold(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
