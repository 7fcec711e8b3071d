package appraisal

// Summarize folds a year of activity data into one row per month. Missing
// achievements and approvals count as "no data"; nothing here is rounded.
func Summarize(ipp IPP, activities []Activity, idx AchievementIndex, approvals []MonthlyApproval) ExecutiveSummary {
	approvalByMonth := make(map[int]ApprovalStatus, len(approvals))
	for _, ma := range approvals {
		approvalByMonth[ma.Month] = ma.Approval
	}

	out := ExecutiveSummary{
		SummaryHeader: SummaryHeader{IppID: ipp.ID, Year: ipp.Year, NPK: ipp.OwnerNPK},
		Rows:          make([]SummaryRow, 0, MonthsPerYear),
	}
	var achievedPctSum float64
	for month := 1; month <= MonthsPerYear; month++ {
		row := SummaryRow{
			Year:               ipp.Year,
			Month:              month,
			TotalActivityCount: len(activities),
			MonthlyApproval:    ApprovalPending,
		}
		row.CountedActivityCount, row.AchievedCount = CountedActivities(month, activities, idx)
		row.NotAchievedCount = row.CountedActivityCount - row.AchievedCount
		row.CountedWeightPct = CountedWeight(month, activities, idx) * 100
		row.AchievedWeightPct = AchievedWeight(month, activities, idx) * 100
		if row.CountedActivityCount > 0 {
			row.MonthlyAchievementRatio = float64(row.AchievedCount) / float64(row.CountedActivityCount)
		}
		if status, ok := approvalByMonth[month]; ok && status.Valid() {
			row.MonthlyApproval = status
		}
		achievedPctSum += row.AchievedWeightPct
		out.Rows = append(out.Rows, row)
	}
	out.TotalAverage = achievedPctSum / MonthsPerYear
	return out
}
