package appraisal

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrState      = errors.New("invalid state")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("storage unavailable")
)

var (
	ErrInvalidMonth        = fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	ErrInvalidYear         = fmt.Errorf("%w: year must be between %d and %d", ErrValidation, MinYear, MaxYear)
	ErrInvalidStatus       = fmt.Errorf("%w: unsupported status", ErrValidation)
	ErrIppExists           = fmt.Errorf("%w: ipp id already exists", ErrValidation)
	ErrDuplicateCode       = fmt.Errorf("%w: activity code already used in this ipp", ErrValidation)
	ErrFileTooLarge        = fmt.Errorf("%w: file exceeds upload limit", ErrValidation)
	ErrNoActivities        = fmt.Errorf("%w: ipp has no activities", ErrValidation)
	ErrMissingCode         = fmt.Errorf("%w: every activity needs a code", ErrValidation)
	ErrAlreadySubmitted    = fmt.Errorf("%w: ipp already submitted", ErrState)
	ErrNotSubmitted        = fmt.Errorf("%w: ipp not submitted", ErrState)
	ErrVerifyClosed        = fmt.Errorf("%w: verification already decided", ErrState)
	ErrNotVerified         = fmt.Errorf("%w: ipp not verified", ErrState)
	ErrApprovalClosed      = fmt.Errorf("%w: approval already decided", ErrState)
	ErrSummaryLocked       = fmt.Errorf("%w: summary available after approval", ErrState)
	ErrDetailLocked        = fmt.Errorf("%w: activity detail available after approval", ErrState)
	ErrNotOwner            = fmt.Errorf("%w: only the plan owner may do this", ErrForbidden)
	ErrReviewerOnly        = fmt.Errorf("%w: requires ADMIN or OPERATION role", ErrForbidden)
	ErrIppNotFound         = fmt.Errorf("%w: ipp", ErrNotFound)
	ErrActivityNotFound    = fmt.Errorf("%w: activity", ErrNotFound)
	ErrAchievementNotFound = fmt.Errorf("%w: achievement", ErrNotFound)
	ErrEvidenceNotFound    = fmt.Errorf("%w: evidence", ErrNotFound)
	ErrApprovalNotFound    = fmt.Errorf("%w: monthly approval", ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("%w: category", ErrNotFound)
)

// FieldError reports a missing or malformed input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

type WeightErrorKind string

const (
	CategoryExceeded WeightErrorKind = "CATEGORY_EXCEEDED"
	TotalNot100      WeightErrorKind = "TOTAL_NOT_100"
)

// WeightError describes why an activity set cannot be submitted.
type WeightError struct {
	Kind    WeightErrorKind
	Details []string
}

func (e *WeightError) Error() string {
	if len(e.Details) == 0 {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Details, "; "))
}

func (e *WeightError) Unwrap() error { return ErrValidation }

// Kind returns the taxonomy sentinel err belongs to, or nil.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrState, ErrForbidden, ErrNotFound, ErrTransport} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
