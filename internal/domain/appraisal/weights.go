package appraisal

import (
	"fmt"
	"math"
	"strings"
)

type CategoryTotal struct {
	Category ActivityCategory `json:"category"`
	Weight   float64          `json:"weight"`
	Limit    float64          `json:"limit"`
	Exceeded bool             `json:"exceeded"`
}

// WeightReport is what an editor sees after every activity save. Drafts may
// be out of balance; only submission enforces the rule.
type WeightReport struct {
	Categories []CategoryTotal `json:"categories"`
	Total      float64         `json:"total"`
	Balanced   bool            `json:"balanced"`
	Warnings   []string        `json:"warnings"`
}

func SumByCategory(activities []Activity) map[ActivityCategory]float64 {
	sums := make(map[ActivityCategory]float64, len(ActivityCategories))
	for _, a := range activities {
		sums[a.Category] += a.Weight
	}
	return sums
}

func BuildWeightReport(activities []Activity, limits CategoryLimits) WeightReport {
	sums := SumByCategory(activities)
	report := WeightReport{Warnings: []string{}}
	for _, c := range ActivityCategories {
		total := CategoryTotal{Category: c, Weight: sums[c], Limit: limits.For(c)}
		total.Exceeded = total.Weight-total.Limit > WeightEpsilon
		if total.Exceeded {
			report.Warnings = append(report.Warnings, exceededDetail(total))
		}
		report.Categories = append(report.Categories, total)
		report.Total += total.Weight
	}
	report.Balanced = math.Abs(report.Total-1.0) <= WeightEpsilon
	if !report.Balanced {
		report.Warnings = append(report.Warnings, totalDetail(report.Total))
	}
	return report
}

// ValidateWeights enforces the submission rule: no category above its limit
// and a grand total of 1.0. Category violations are reported first.
func ValidateWeights(activities []Activity, limits CategoryLimits) error {
	report := BuildWeightReport(activities, limits)
	var exceeded []string
	for _, c := range report.Categories {
		if c.Exceeded {
			exceeded = append(exceeded, exceededDetail(c))
		}
	}
	if len(exceeded) > 0 {
		return &WeightError{Kind: CategoryExceeded, Details: exceeded}
	}
	if !report.Balanced {
		return &WeightError{Kind: TotalNot100, Details: []string{totalDetail(report.Total)}}
	}
	return nil
}

func exceededDetail(c CategoryTotal) string {
	return fmt.Sprintf("%s weight %s exceeds limit %s", c.Category, Percent(c.Weight), Percent(c.Limit))
}

func totalDetail(total float64) string {
	return fmt.Sprintf("total weight %s must equal 100%%", Percent(total))
}

// NormalizeActivityInput trims text fields in place.
func NormalizeActivityInput(in *ActivityInput) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.KPI = strings.TrimSpace(in.KPI)
	in.Target = strings.TrimSpace(in.Target)
	in.Deliverable = strings.TrimSpace(in.Deliverable)
	in.Category = ActivityCategory(strings.ToUpper(strings.TrimSpace(string(in.Category))))
}

// ValidateActivityInput checks a single activity's fields. The weight is a
// fraction of 1.0.
func ValidateActivityInput(in ActivityInput) error {
	switch {
	case in.Code == "":
		return &FieldError{Field: "code", Reason: "required"}
	case !in.Category.Valid():
		return &FieldError{Field: "category", Reason: "must be ROUTINE, NON_ROUTINE or PROJECT"}
	case in.Name == "":
		return &FieldError{Field: "name", Reason: "required"}
	case in.KPI == "":
		return &FieldError{Field: "kpi", Reason: "required"}
	case in.Target == "":
		return &FieldError{Field: "target", Reason: "required"}
	case in.Deliverable == "":
		return &FieldError{Field: "deliverable", Reason: "required"}
	case math.IsNaN(in.Weight) || in.Weight <= 0 || in.Weight > 1:
		return &FieldError{Field: "weight", Reason: "must be greater than 0 and at most 1"}
	}
	return nil
}
