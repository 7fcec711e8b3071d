package appraisal

import "github.com/shopspring/decimal"

// AchievementIndex looks up an activity's achievement for a month.
type AchievementIndex map[string]map[int]Achievement

func IndexAchievements(list []Achievement) AchievementIndex {
	idx := AchievementIndex{}
	for _, a := range list {
		idx.Put(a)
	}
	return idx
}

func (idx AchievementIndex) Put(a Achievement) {
	months, ok := idx[a.ActivityID]
	if !ok {
		months = map[int]Achievement{}
		idx[a.ActivityID] = months
	}
	months[a.Month] = a
}

func (idx AchievementIndex) Get(activityID string, month int) (Achievement, bool) {
	a, ok := idx[activityID][month]
	return a, ok
}

// Score is one achievement's weighted contribution. A missing value counts
// as zero. The result is not rounded.
func Score(value *float64, weight float64) float64 {
	if value == nil {
		return 0
	}
	return *value * weight
}

// CountedWeight sums the weight of activities whose achievement for month is
// marked COUNT.
func CountedWeight(month int, activities []Activity, idx AchievementIndex) float64 {
	var total float64
	for _, act := range activities {
		if a, ok := idx.Get(act.ID, month); ok && a.Status == StatusCount {
			total += act.Weight
		}
	}
	return total
}

// AchievedWeight sums the scores of the same set CountedWeight covers.
func AchievedWeight(month int, activities []Activity, idx AchievementIndex) float64 {
	var total float64
	for _, act := range activities {
		if a, ok := idx.Get(act.ID, month); ok && a.Status == StatusCount {
			total += Score(a.Value, act.Weight)
		}
	}
	return total
}

// CountedActivities counts the same set CountedWeight covers and how many of
// those have a positive value.
func CountedActivities(month int, activities []Activity, idx AchievementIndex) (counted, achieved int) {
	for _, act := range activities {
		a, ok := idx.Get(act.ID, month)
		if !ok || a.Status != StatusCount {
			continue
		}
		counted++
		if a.Value != nil && *a.Value > 0 {
			achieved++
		}
	}
	return counted, achieved
}

// Round is for presentation only; aggregation always works on raw values.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func FormatFixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Percent renders a fraction of 1.0 as a two-decimal percentage.
func Percent(fraction float64) string {
	return decimal.NewFromFloat(fraction).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
