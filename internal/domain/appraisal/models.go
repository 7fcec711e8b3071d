package appraisal

import "time"

// CategoryLimits caps the weight share of each activity category. Values are
// fractions of 1.0.
type CategoryLimits struct {
	Routine    float64 `json:"routineLimit"`
	NonRoutine float64 `json:"nonRoutineLimit"`
	Project    float64 `json:"projectLimit"`
}

func (l CategoryLimits) For(c ActivityCategory) float64 {
	switch c {
	case CategoryRoutine:
		return l.Routine
	case CategoryNonRoutine:
		return l.NonRoutine
	case CategoryProject:
		return l.Project
	}
	return 0
}

type IPP struct {
	ID          string         `json:"id"`
	Year        int            `json:"year"`
	OwnerNPK    string         `json:"ownerNpk"`
	CategoryID  string         `json:"categoryId"`
	SubmittedAt *time.Time     `json:"submittedAt"`
	Verify      VerifyStatus   `json:"verify"`
	Approval    ApprovalStatus `json:"approval"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (p IPP) Submitted() bool {
	return p.SubmittedAt != nil
}

func (p IPP) Stage() string {
	switch {
	case !p.Submitted():
		return StageDraft
	case p.Verify == VerifyRejected || p.Approval == ApprovalRejected:
		return StageRejected
	case p.Approval == ApprovalApproved:
		return StageApproved
	case p.Verify == VerifyVerified:
		return StageVerified
	default:
		return StageSubmitted
	}
}

type Activity struct {
	ID          string           `json:"id"`
	IppID       string           `json:"ippId"`
	Code        string           `json:"code"`
	Category    ActivityCategory `json:"category"`
	Name        string           `json:"name"`
	KPI         string           `json:"kpi"`
	Weight      float64          `json:"weight"`
	Target      string           `json:"target"`
	Deliverable string           `json:"deliverable"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// ActivityInput carries the editable fields of an Activity.
type ActivityInput struct {
	Code        string           `json:"code"`
	Category    ActivityCategory `json:"category"`
	Name        string           `json:"name"`
	KPI         string           `json:"kpi"`
	Weight      float64          `json:"weight"`
	Target      string           `json:"target"`
	Deliverable string           `json:"deliverable"`
}

type Achievement struct {
	ID         string       `json:"id"`
	ActivityID string       `json:"activityId"`
	Month      int          `json:"month"`
	Value      *float64     `json:"value"`
	Status     CountStatus  `json:"status"`
	Verify     VerifyStatus `json:"verify"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type Evidence struct {
	ID            string    `json:"id"`
	AchievementID string    `json:"achievementId"`
	FileReference string    `json:"fileReference"`
	FileName      string    `json:"fileName"`
	FileSize      int64     `json:"fileSize"`
	MimeType      string    `json:"mimeType"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

type MonthlyApproval struct {
	ID        string         `json:"id"`
	IppID     string         `json:"ippId"`
	Month     int            `json:"month"`
	Approval  ApprovalStatus `json:"approval"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type CreateIppInput struct {
	ID         string          `json:"id"`
	Year       int             `json:"year"`
	CategoryID string          `json:"categoryId"`
	Activities []ActivityInput `json:"activities"`
}

type IppHeaderInput struct {
	Year       int    `json:"year"`
	CategoryID string `json:"categoryId"`
}

type IppFilter struct {
	OwnerNPK string
	Year     int
	Stage    string
	Limit    int
	Offset   int
}

// IppView is an IPP with its derived stage and status text.
type IppView struct {
	IPP
	Stage         string   `json:"stage"`
	StatusMessage string   `json:"statusMessage"`
	Actions       []string `json:"actions"`
}

type SummaryRow struct {
	Year                    int            `json:"year"`
	Month                   int            `json:"month"`
	TotalActivityCount      int            `json:"totalActivityCount"`
	CountedActivityCount    int            `json:"countedActivityCount"`
	AchievedCount           int            `json:"achievedCount"`
	NotAchievedCount        int            `json:"notAchievedCount"`
	CountedWeightPct        float64        `json:"countedWeightPct"`
	AchievedWeightPct       float64        `json:"achievedWeightPct"`
	MonthlyAchievementRatio float64        `json:"monthlyAchievementRatio"`
	MonthlyApproval         ApprovalStatus `json:"monthlyApproval"`
}

type SummaryHeader struct {
	IppID      string `json:"ippId"`
	Year       int    `json:"year"`
	NPK        string `json:"npk"`
	Username   string `json:"username"`
	Department string `json:"department"`
	Category   string `json:"category"`
}

type ExecutiveSummary struct {
	SummaryHeader
	Rows         []SummaryRow `json:"rows"`
	TotalAverage float64      `json:"totalAverage"`
	Degraded     []string     `json:"degraded,omitempty"`
}

// MonthDetail is one month of an activity drill-through.
type MonthDetail struct {
	Month       int            `json:"month"`
	Achievement *Achievement   `json:"achievement"`
	Score       float64        `json:"score"`
	Evidence    []EvidenceView `json:"evidence"`
}

type ActivityDetail struct {
	Activity Activity      `json:"activity"`
	Months   []MonthDetail `json:"months"`
	Degraded []string      `json:"degraded,omitempty"`
}

// Reference data resolved from the master data tables.
type CategoryRef struct {
	ID     string
	Name   string
	Limits CategoryLimits
}

type OwnerProfile struct {
	NPK          string
	Name         string
	DepartmentID string
}
