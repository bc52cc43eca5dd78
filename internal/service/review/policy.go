package review

import (
	"fmt"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// The three labeling policies. Each is a total function from a group and
// its parameters to a key→label mapping; none of them touches the store
// or decides navigation.

// uniformLabels marks every member of the group as the same word:
// label 1 across the board.
func uniformLabels(g *domain.Group) map[domain.RecordKey]int {
	labels := make(map[domain.RecordKey]int, g.Size())
	for _, key := range g.Keys() {
		labels[key] = 1
	}
	return labels
}

// distinctLabels marks every member as a different word: labels 1..N in
// member (source) order.
func distinctLabels(g *domain.Group) map[domain.RecordKey]int {
	labels := make(map[domain.RecordKey]int, g.Size())
	for i, key := range g.Keys() {
		labels[key] = i + 1
	}
	return labels
}

// manualLabels applies the reviewer's per-member sub-group choices.
// Members without an explicit choice default to sub-group 1. A choice for
// a key outside the group, a duplicate choice, or a sub-group outside
// [1, min(maxGroups, N)] is a validation error; nothing is applied then.
func manualLabels(g *domain.Group, choices []ManualChoice, maxGroups int) (map[domain.RecordKey]int, error) {
	limit := maxGroups
	if g.Size() < limit {
		limit = g.Size()
	}

	labels := make(map[domain.RecordKey]int, g.Size())
	for _, key := range g.Keys() {
		labels[key] = 1
	}

	var errs []domain.FieldError
	chosen := make(map[domain.RecordKey]bool, len(choices))
	for n, c := range choices {
		if _, member := labels[c.Key]; !member {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("choices[%d]", n),
				Message: fmt.Sprintf("record %s is not part of group %q", c.Key, g.Word),
			})
			continue
		}
		if chosen[c.Key] {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("choices[%d]", n),
				Message: fmt.Sprintf("duplicate choice for record %s", c.Key),
			})
			continue
		}
		if c.Group < 1 || c.Group > limit {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("choices[%d].group", n),
				Message: fmt.Sprintf("must be in [1, %d]", limit),
			})
			continue
		}
		chosen[c.Key] = true
		labels[c.Key] = c.Group
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}
	return labels, nil
}
