package appraisal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	assert.Equal(t, 20.0, Score(ptr(80), 0.25))
	assert.Equal(t, 0.0, Score(nil, 0.4))
	assert.Equal(t, 0.0, Score(ptr(0), 0.4))
	assert.InDelta(t, 33.33333, Score(ptr(100.0/3), 1), 1e-4)
}

func TestMonthRollups(t *testing.T) {
	activities := []Activity{
		act("A", CategoryRoutine, 0.2),
		act("B", CategoryRoutine, 0.1),
		act("C", CategoryProject, 0.3),
	}
	idx := IndexAchievements([]Achievement{
		{ActivityID: "id-A", Month: 3, Value: ptr(10), Status: StatusCount},
		{ActivityID: "id-B", Month: 3, Value: ptr(0), Status: StatusCount},
		{ActivityID: "id-C", Month: 3, Value: ptr(50), Status: StatusNotCount},
		{ActivityID: "id-C", Month: 4, Value: nil, Status: StatusCount},
	})

	assert.InDelta(t, 0.3, CountedWeight(3, activities, idx), 1e-9)
	assert.InDelta(t, 2.0, AchievedWeight(3, activities, idx), 1e-9)
	assert.InDelta(t, 0.3, CountedWeight(4, activities, idx), 1e-9)
	assert.Equal(t, 0.0, AchievedWeight(4, activities, idx))
	assert.Equal(t, 0.0, CountedWeight(5, activities, idx))

	counted, achieved := CountedActivities(3, activities, idx)
	assert.Equal(t, 2, counted, "NOT_COUNT rows are left out")
	assert.Equal(t, 1, achieved, "zero is not achieved")
	counted, achieved = CountedActivities(4, activities, idx)
	assert.Equal(t, 1, counted)
	assert.Zero(t, achieved)
}

func TestRoundingIsPresentationOnly(t *testing.T) {
	assert.Equal(t, 12.35, Round(12.345, 2))
	assert.Equal(t, "66.67", FormatFixed(200.0/3, 2))
	assert.Equal(t, "25.00%", Percent(0.25))
}
