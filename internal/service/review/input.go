package review

import (
	"fmt"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// LoadInput holds a parsed dataset and its file identity.
type LoadInput struct {
	FileName string
	Records  []domain.Record
}

// Validate checks all fields and collects all errors.
func (i *LoadInput) Validate() error {
	var errs []domain.FieldError

	if i.FileName == "" {
		errs = append(errs, domain.FieldError{Field: "file_name", Message: "required"})
	}
	if len(i.Records) == 0 {
		errs = append(errs, domain.FieldError{Field: "records", Message: "dataset is empty"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ManualChoice assigns one group member to a homophone sub-group.
type ManualChoice struct {
	Key   domain.RecordKey
	Group int
}

// ManualInput holds a manual classification submission for the current
// group. Members without an explicit choice default to sub-group 1; this
// leniency is deliberate and observable, not an error path.
type ManualInput struct {
	Choices []ManualChoice
}

// Validate checks the structurally verifiable parts of the submission.
// Membership and the upper label bound depend on the current group and
// are enforced when the policy is applied.
func (i *ManualInput) Validate() error {
	var errs []domain.FieldError

	for n, c := range i.Choices {
		if c.Group < 1 {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("choices[%d].group", n),
				Message: "must be >= 1",
			})
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
