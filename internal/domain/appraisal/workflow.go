package appraisal

import (
	"fmt"
	"time"
)

type Transition string

const (
	TransitionSubmit            Transition = "submit"
	TransitionVerify            Transition = "verify"
	TransitionApprove           Transition = "approve"
	TransitionEditHeader        Transition = "edit_header"
	TransitionEditActivities    Transition = "edit_activities"
	TransitionDelete            Transition = "delete"
	TransitionEditAchievement   Transition = "edit_achievement"
	TransitionVerifyAchievement Transition = "verify_achievement"
	TransitionMonthlyApproval   Transition = "monthly_approval"
)

// transitionOrder fixes the order AvailableActions reports in.
var transitionOrder = []Transition{
	TransitionEditHeader,
	TransitionEditActivities,
	TransitionDelete,
	TransitionSubmit,
	TransitionVerify,
	TransitionApprove,
	TransitionEditAchievement,
	TransitionVerifyAchievement,
	TransitionMonthlyApproval,
}

type rule struct {
	who  func(Actor, IPP) error
	when func(IPP) error
}

var transitions = map[Transition]rule{
	TransitionSubmit:            {who: ownerOnly, when: draftOnly},
	TransitionEditHeader:        {who: ownerOnly, when: draftOnly},
	TransitionEditActivities:    {who: ownerOnly, when: draftOnly},
	TransitionDelete:            {who: ownerOnly, when: draftOnly},
	TransitionVerify:            {who: reviewerOnly, when: awaitingVerification},
	TransitionApprove:           {who: reviewerOnly, when: awaitingApproval},
	TransitionEditAchievement:   {who: ownerOnly, when: always},
	TransitionVerifyAchievement: {who: reviewerOnly, when: always},
	TransitionMonthlyApproval:   {who: reviewerOnly, when: always},
}

func ownerOnly(actor Actor, ipp IPP) error {
	if !actor.Owns(ipp) {
		return ErrNotOwner
	}
	return nil
}

func reviewerOnly(actor Actor, _ IPP) error {
	if !actor.IsReviewer() {
		return ErrReviewerOnly
	}
	return nil
}

func draftOnly(ipp IPP) error {
	if ipp.Submitted() {
		return ErrAlreadySubmitted
	}
	return nil
}

func awaitingVerification(ipp IPP) error {
	if !ipp.Submitted() {
		return ErrNotSubmitted
	}
	if ipp.Verify != VerifyPending {
		return ErrVerifyClosed
	}
	return nil
}

func awaitingApproval(ipp IPP) error {
	if ipp.Verify == VerifyRejected {
		return ErrVerifyClosed
	}
	if ipp.Verify != VerifyVerified {
		return ErrNotVerified
	}
	if ipp.Approval != ApprovalPending {
		return ErrApprovalClosed
	}
	return nil
}

func always(IPP) error { return nil }

// CheckTransition reports why actor may not perform t on ipp. Role and
// ownership are checked before workflow stage so a forbidden caller never
// learns about state.
func CheckTransition(actor Actor, ipp IPP, t Transition) error {
	r, ok := transitions[t]
	if !ok {
		return fmt.Errorf("%w: unknown transition %q", ErrValidation, t)
	}
	if err := r.who(actor, ipp); err != nil {
		return err
	}
	return r.when(ipp)
}

func CanTransition(actor Actor, ipp IPP, t Transition) bool {
	return CheckTransition(actor, ipp, t) == nil
}

func AvailableActions(actor Actor, ipp IPP) []string {
	out := []string{}
	for _, t := range transitionOrder {
		if CanTransition(actor, ipp, t) {
			out = append(out, string(t))
		}
	}
	return out
}

// Submit freezes a draft plan. activities must be the plan's full set.
func Submit(actor Actor, ipp IPP, activities []Activity, limits CategoryLimits, now time.Time) (IPP, error) {
	if err := CheckTransition(actor, ipp, TransitionSubmit); err != nil {
		return ipp, err
	}
	if len(activities) == 0 {
		return ipp, ErrNoActivities
	}
	for _, a := range activities {
		if a.Code == "" {
			return ipp, ErrMissingCode
		}
	}
	if err := ValidateWeights(activities, limits); err != nil {
		return ipp, err
	}
	at := now.UTC()
	ipp.SubmittedAt = &at
	ipp.UpdatedAt = at
	return ipp, nil
}

func ApplyVerify(actor Actor, ipp IPP, status VerifyStatus, now time.Time) (IPP, error) {
	if status != VerifyVerified && status != VerifyRejected {
		return ipp, ErrInvalidStatus
	}
	if err := CheckTransition(actor, ipp, TransitionVerify); err != nil {
		return ipp, err
	}
	ipp.Verify = status
	ipp.UpdatedAt = now.UTC()
	return ipp, nil
}

func ApplyApproval(actor Actor, ipp IPP, status ApprovalStatus, now time.Time) (IPP, error) {
	if status != ApprovalApproved && status != ApprovalRejected {
		return ipp, ErrInvalidStatus
	}
	if err := CheckTransition(actor, ipp, TransitionApprove); err != nil {
		return ipp, err
	}
	ipp.Approval = status
	ipp.UpdatedAt = now.UTC()
	return ipp, nil
}

// ApplyMonthlyApproval may move between APPROVED and REJECTED any number of
// times and does not depend on the plan's verify or approval state.
func ApplyMonthlyApproval(actor Actor, ipp IPP, ma MonthlyApproval, status ApprovalStatus, now time.Time) (MonthlyApproval, error) {
	if status != ApprovalApproved && status != ApprovalRejected {
		return ma, ErrInvalidStatus
	}
	if err := CheckTransition(actor, ipp, TransitionMonthlyApproval); err != nil {
		return ma, err
	}
	ma.Approval = status
	ma.UpdatedAt = now.UTC()
	return ma, nil
}

func StatusMessage(ipp IPP) string {
	switch {
	case !ipp.Submitted():
		return "IPP has not been submitted yet. Actions will be available after submission."
	case ipp.Verify == VerifyRejected:
		return "IPP verification has been rejected. No further actions available."
	case ipp.Approval == ApprovalRejected:
		return "IPP approval has been rejected. No further actions available."
	case ipp.Verify == VerifyPending:
		return "IPP is waiting for verification."
	case ipp.Approval == ApprovalPending:
		return "IPP has been verified and is waiting for approval."
	default:
		return "IPP has been approved."
	}
}

func NewIppView(actor Actor, ipp IPP) IppView {
	return IppView{
		IPP:           ipp,
		Stage:         ipp.Stage(),
		StatusMessage: StatusMessage(ipp),
		Actions:       AvailableActions(actor, ipp),
	}
}
