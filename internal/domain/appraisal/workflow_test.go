package appraisal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = Actor{NPK: "1001", Role: RoleUser}
	stranger = Actor{NPK: "2002", Role: RoleUser}
	operator = Actor{NPK: "3003", Role: RoleOperation}
	admin    = Actor{NPK: "4004", Role: RoleAdmin}
	fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

func draftIpp() IPP {
	return IPP{ID: "IPP-2025-1001", Year: 2025, OwnerNPK: owner.NPK, Verify: VerifyPending, Approval: ApprovalPending}
}

func submittedIpp() IPP {
	ipp := draftIpp()
	at := fixedNow
	ipp.SubmittedAt = &at
	return ipp
}

func balancedActivities() []Activity {
	return []Activity{
		act("R1", CategoryRoutine, 0.4),
		act("R2", CategoryRoutine, 0.2),
		act("N1", CategoryNonRoutine, 0.3),
		act("P1", CategoryProject, 0.1),
	}
}

func TestSubmit(t *testing.T) {
	out, err := Submit(owner, draftIpp(), balancedActivities(), defaultLimits, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, out.SubmittedAt)
	assert.Equal(t, StageSubmitted, out.Stage())

	_, err = Submit(owner, out, balancedActivities(), defaultLimits, fixedNow)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, err, ErrState)
}

func TestSubmitPreconditions(t *testing.T) {
	_, err := Submit(stranger, draftIpp(), balancedActivities(), defaultLimits, fixedNow)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = Submit(admin, draftIpp(), balancedActivities(), defaultLimits, fixedNow)
	assert.ErrorIs(t, err, ErrForbidden, "reviewers cannot submit someone else's plan")

	_, err = Submit(owner, draftIpp(), nil, defaultLimits, fixedNow)
	assert.ErrorIs(t, err, ErrNoActivities)

	missingCode := balancedActivities()
	missingCode[1].Code = ""
	_, err = Submit(owner, draftIpp(), missingCode, defaultLimits, fixedNow)
	assert.ErrorIs(t, err, ErrMissingCode)

	over := []Activity{act("R1", CategoryRoutine, 0.5), act("R2", CategoryRoutine, 0.2), act("N1", CategoryNonRoutine, 0.3)}
	_, err = Submit(owner, draftIpp(), over, defaultLimits, fixedNow)
	var werr *WeightError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, CategoryExceeded, werr.Kind)
}

func TestVerify(t *testing.T) {
	_, err := ApplyVerify(operator, draftIpp(), VerifyVerified, fixedNow)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	_, err = ApplyVerify(owner, submittedIpp(), VerifyVerified, fixedNow)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = ApplyVerify(operator, submittedIpp(), VerifyPending, fixedNow)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	verified, err := ApplyVerify(operator, submittedIpp(), VerifyVerified, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, VerifyVerified, verified.Verify)

	_, err = ApplyVerify(admin, verified, VerifyRejected, fixedNow)
	assert.ErrorIs(t, err, ErrVerifyClosed, "verify is terminal once decided")
}

func TestApprovalRequiresVerification(t *testing.T) {
	_, err := ApplyApproval(admin, submittedIpp(), ApprovalApproved, fixedNow)
	assert.ErrorIs(t, err, ErrState)
	assert.ErrorIs(t, err, ErrNotVerified)

	rejected, err := ApplyVerify(admin, submittedIpp(), VerifyRejected, fixedNow)
	require.NoError(t, err)
	_, err = ApplyApproval(admin, rejected, ApprovalApproved, fixedNow)
	assert.ErrorIs(t, err, ErrState)
	assert.Equal(t, StageRejected, rejected.Stage())

	verified, err := ApplyVerify(admin, submittedIpp(), VerifyVerified, fixedNow)
	require.NoError(t, err)
	_, err = ApplyApproval(owner, verified, ApprovalApproved, fixedNow)
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := ApplyApproval(operator, verified, ApprovalApproved, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, StageApproved, approved.Stage())

	_, err = ApplyApproval(operator, approved, ApprovalRejected, fixedNow)
	assert.ErrorIs(t, err, ErrApprovalClosed)
}

func TestForbiddenIsDistinctFromState(t *testing.T) {
	err := CheckTransition(owner, submittedIpp(), TransitionApprove)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrState))

	err = CheckTransition(admin, submittedIpp(), TransitionApprove)
	assert.True(t, errors.Is(err, ErrState))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestActivitiesFrozenAfterSubmission(t *testing.T) {
	assert.True(t, CanTransition(owner, draftIpp(), TransitionEditActivities))
	assert.ErrorIs(t, CheckTransition(owner, submittedIpp(), TransitionEditActivities), ErrAlreadySubmitted)
	assert.ErrorIs(t, CheckTransition(owner, submittedIpp(), TransitionDelete), ErrAlreadySubmitted)
	assert.ErrorIs(t, CheckTransition(owner, submittedIpp(), TransitionEditHeader), ErrAlreadySubmitted)
}

func TestMonthlyApprovalToggles(t *testing.T) {
	ma := MonthlyApproval{ID: "m1", Month: 2, Approval: ApprovalPending}

	_, err := ApplyMonthlyApproval(owner, draftIpp(), ma, ApprovalApproved, fixedNow)
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := ApplyMonthlyApproval(operator, draftIpp(), ma, ApprovalApproved, fixedNow)
	require.NoError(t, err, "monthly approval is independent of plan state")
	rejected, err := ApplyMonthlyApproval(admin, draftIpp(), approved, ApprovalRejected, fixedNow)
	require.NoError(t, err)
	again, err := ApplyMonthlyApproval(admin, draftIpp(), rejected, ApprovalApproved, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, ApprovalApproved, again.Approval)

	_, err = ApplyMonthlyApproval(admin, draftIpp(), again, ApprovalPending, fixedNow)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAvailableActions(t *testing.T) {
	assert.Equal(t, []string{"edit_header", "edit_activities", "delete", "submit", "edit_achievement"}, AvailableActions(owner, draftIpp()))
	assert.Equal(t, []string{"verify", "verify_achievement", "monthly_approval"}, AvailableActions(operator, submittedIpp()))
	assert.Equal(t, []string{}, AvailableActions(stranger, submittedIpp()))
}

func TestCheckTransitionUnknown(t *testing.T) {
	assert.ErrorIs(t, CheckTransition(admin, draftIpp(), Transition("reopen")), ErrValidation)
}

func TestStatusMessage(t *testing.T) {
	ipp := draftIpp()
	assert.Contains(t, StatusMessage(ipp), "not been submitted")

	ipp = submittedIpp()
	assert.Equal(t, "IPP is waiting for verification.", StatusMessage(ipp))

	ipp.Verify = VerifyVerified
	assert.Equal(t, "IPP has been verified and is waiting for approval.", StatusMessage(ipp))

	ipp.Approval = ApprovalRejected
	assert.Equal(t, "IPP approval has been rejected. No further actions available.", StatusMessage(ipp))

	ipp.Verify = VerifyRejected
	ipp.Approval = ApprovalPending
	assert.Equal(t, "IPP verification has been rejected. No further actions available.", StatusMessage(ipp))
}
