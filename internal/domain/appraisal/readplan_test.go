package appraisal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("connection reset")

// flakyStore fails selected reads of an otherwise working store.
type flakyStore struct {
	StoreAPI
	failActivities   bool
	failApprovals    bool
	failAchievements map[string]bool
	failEvidence     bool
}

func (f *flakyStore) ListActivities(ctx context.Context, ippID string) ([]Activity, error) {
	if f.failActivities {
		return nil, transportErr(errBoom)
	}
	return f.StoreAPI.ListActivities(ctx, ippID)
}

func (f *flakyStore) ListMonthlyApprovals(ctx context.Context, ippID string) ([]MonthlyApproval, error) {
	if f.failApprovals {
		return nil, transportErr(errBoom)
	}
	return f.StoreAPI.ListMonthlyApprovals(ctx, ippID)
}

func (f *flakyStore) ListAchievements(ctx context.Context, activityID string) ([]Achievement, error) {
	if f.failAchievements[activityID] {
		return nil, transportErr(errBoom)
	}
	return f.StoreAPI.ListAchievements(ctx, activityID)
}

func (f *flakyStore) ListEvidence(ctx context.Context, achievementID string) ([]Evidence, error) {
	if f.failEvidence {
		return nil, transportErr(errBoom)
	}
	return f.StoreAPI.ListEvidence(ctx, achievementID)
}

type countingRecorder struct {
	mu       sync.Mutex
	degraded map[string]int
}

func (r *countingRecorder) Transition(Transition, string) {}

func (r *countingRecorder) Degraded(branch string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded == nil {
		r.degraded = map[string]int{}
	}
	r.degraded[branch]++
}

func TestLoadSummarySourceDegradesOptionalBranches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.approvedIpp(t, "IPP-1")
	byCode := map[string]Activity{}
	for _, a := range res.Activities {
		byCode[a.Code] = a
		_, err := f.svc.UpsertAchievement(ctx, owner, "IPP-1", a.ID, 1, AchievementInput{Value: ptr(100), Status: StatusCount})
		require.NoError(t, err)
	}

	rec := &countingRecorder{}
	f.svc.Store = &flakyStore{
		StoreAPI:         f.store,
		failApprovals:    true,
		failAchievements: map[string]bool{byCode["N1"].ID: true},
	}
	f.svc.Recorder = rec

	summary, err := f.svc.ExecutiveSummary(ctx, owner, "IPP-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"achievements:N1", "monthly_approvals"}, summary.Degraded)
	assert.Equal(t, 1, rec.degraded["achievements"])
	assert.Equal(t, 1, rec.degraded["approvals"])

	jan := summary.Rows[0]
	assert.Equal(t, 4, jan.TotalActivityCount)
	assert.Equal(t, 3, jan.CountedActivityCount)
	assert.InDelta(t, 70.0, jan.CountedWeightPct, 1e-9)
	for _, row := range summary.Rows {
		assert.Equal(t, ApprovalPending, row.MonthlyApproval)
	}
}

func TestLoadSummarySourceRequiresActivities(t *testing.T) {
	f := newFixture(t)
	f.approvedIpp(t, "IPP-1")
	f.svc.Store = &flakyStore{StoreAPI: f.store, failActivities: true}

	_, err := f.svc.ExecutiveSummary(context.Background(), owner, "IPP-1")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestLoadSummarySourceHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	res := f.approvedIpp(t, "IPP-1")
	ipp, err := f.store.GetIpp(context.Background(), res.Ipp.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.LoadSummarySource(ctx, ipp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActivityDetailDegradesEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.approvedIpp(t, "IPP-1")
	activity := res.Activities[0]
	for _, month := range []int{2, 6} {
		_, err := f.svc.UpsertAchievement(ctx, owner, "IPP-1", activity.ID, month, AchievementInput{Value: ptr(40), Status: StatusCount})
		require.NoError(t, err)
	}
	f.svc.Store = &flakyStore{StoreAPI: f.store, failEvidence: true}

	detail, err := f.svc.ActivityDetail(ctx, owner, "IPP-1", activity.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"evidence:R1:2", "evidence:R1:6"}, detail.Degraded)
	require.NotNil(t, detail.Months[1].Achievement)
	assert.Empty(t, detail.Months[1].Evidence)
}
