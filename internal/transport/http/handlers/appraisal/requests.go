package appraisalhandler

import (
	"strings"

	"pms/internal/domain/appraisal"
)

type activityRequest struct {
	Code        string  `json:"code" validate:"required,max=32"`
	Category    string  `json:"category" validate:"required"`
	Name        string  `json:"name" validate:"required,max=256"`
	KPI         string  `json:"kpi" validate:"required"`
	Weight      float64 `json:"weight" validate:"gt=0,lte=1"`
	Target      string  `json:"target" validate:"required"`
	Deliverable string  `json:"deliverable" validate:"required"`
}

func (p activityRequest) input() appraisal.ActivityInput {
	return appraisal.ActivityInput{
		Code:        strings.TrimSpace(p.Code),
		Category:    appraisal.ActivityCategory(strings.ToUpper(strings.TrimSpace(p.Category))),
		Name:        p.Name,
		KPI:         p.KPI,
		Weight:      p.Weight,
		Target:      p.Target,
		Deliverable: p.Deliverable,
	}
}

type createIppRequest struct {
	ID         string            `json:"id" validate:"required,max=64"`
	Year       int               `json:"year" validate:"required"`
	CategoryID string            `json:"categoryId" validate:"required"`
	Activities []activityRequest `json:"activities" validate:"dive"`
}

func (p createIppRequest) input() appraisal.CreateIppInput {
	activities := make([]appraisal.ActivityInput, 0, len(p.Activities))
	for _, a := range p.Activities {
		activities = append(activities, a.input())
	}
	return appraisal.CreateIppInput{
		ID:         p.ID,
		Year:       p.Year,
		CategoryID: p.CategoryID,
		Activities: activities,
	}
}

type headerRequest struct {
	Year       int    `json:"year" validate:"required"`
	CategoryID string `json:"categoryId" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (p statusRequest) normalized() string {
	return strings.ToUpper(strings.TrimSpace(p.Status))
}

type achievementRequest struct {
	Value  *float64 `json:"value"`
	Status string   `json:"status"`
}

type evidenceRefRequest struct {
	FileReference string `json:"fileReference" validate:"required"`
	FileName      string `json:"fileName" validate:"max=256"`
	FileSize      int64  `json:"fileSize" validate:"gte=0"`
	MimeType      string `json:"mimeType" validate:"max=128"`
}
