package appraisal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawActivity(ippID, id, code string) Activity {
	return Activity{
		ID:          id,
		IppID:       ippID,
		Code:        code,
		Category:    CategoryRoutine,
		Name:        "Activity " + code,
		KPI:         "kpi",
		Weight:      0.05,
		Target:      "target",
		Deliverable: "report",
		CreatedAt:   fixedNow,
	}
}

func TestStoreActivityWritesRejectedAfterSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.createIpp(t, "IPP-1", balancedInputs())
	_, err := f.svc.SubmitIpp(ctx, owner, "IPP-1")
	require.NoError(t, err)

	err = f.store.CreateActivity(ctx, rawActivity("IPP-1", "act-late", "X9"))
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	changed := res.Activities[0]
	changed.Weight = 0.9
	err = f.store.UpdateActivity(ctx, changed)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	err = f.store.DeleteActivity(ctx, "IPP-1", res.Activities[1].ID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	err = f.store.UpdateIppHeader(ctx, "IPP-1", 2030, "cat-staff", fixedNow)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	stored, err := f.store.ListActivities(ctx, "IPP-1")
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	for _, a := range stored {
		if a.ID == changed.ID {
			assert.Equal(t, res.Activities[0].Weight, a.Weight)
		}
	}
	ipp, err := f.store.GetIpp(ctx, "IPP-1")
	require.NoError(t, err)
	assert.Equal(t, 2025, ipp.Year)
}

func TestStoreActivityWritesOnDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.createIpp(t, "IPP-1", balancedInputs())

	require.NoError(t, f.store.CreateActivity(ctx, rawActivity("IPP-1", "act-new", "X9")))
	err := f.store.CreateActivity(ctx, rawActivity("IPP-1", "act-dup", "X9"))
	assert.ErrorIs(t, err, ErrDuplicateCode)

	dup := res.Activities[0]
	dup.Code = "R2"
	assert.ErrorIs(t, f.store.UpdateActivity(ctx, dup), ErrDuplicateCode)
	assert.ErrorIs(t, f.store.DeleteActivity(ctx, "IPP-1", "missing"), ErrActivityNotFound)
	require.NoError(t, f.store.DeleteActivity(ctx, "IPP-1", "act-new"))

	err = f.store.CreateActivity(ctx, rawActivity("IPP-404", "act-x", "X1"))
	assert.ErrorIs(t, err, ErrIppNotFound)
	assert.ErrorIs(t, f.store.UpdateIppHeader(ctx, "IPP-404", 2025, "cat-staff", fixedNow), ErrIppNotFound)
}

func TestStoreSubmitIppRunsCheckInsideTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createIpp(t, "IPP-1", balancedInputs())
	rejected := errors.New("weights moved")

	var seen int
	err := f.store.SubmitIpp(ctx, "IPP-1", fixedNow, func(activities []Activity) error {
		seen = len(activities)
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.ErrorIs(t, err, ErrTransport, "unclassified check errors surface as storage failures")
	assert.Equal(t, 4, seen)
	ipp, err := f.store.GetIpp(ctx, "IPP-1")
	require.NoError(t, err)
	assert.Nil(t, ipp.SubmittedAt, "failed check rolls the submission back")

	require.NoError(t, f.store.SubmitIpp(ctx, "IPP-1", fixedNow, func([]Activity) error { return nil }))
	err = f.store.SubmitIpp(ctx, "IPP-1", fixedNow, func([]Activity) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	err = f.store.SubmitIpp(ctx, "IPP-404", fixedNow, func([]Activity) error { return nil })
	assert.ErrorIs(t, err, ErrIppNotFound)
}
