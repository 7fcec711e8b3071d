package appraisal

import (
	"context"
	"time"
)

type StoreAPI interface {
	GetIpp(ctx context.Context, id string) (IPP, error)
	ListIpps(ctx context.Context, filter IppFilter) ([]IPP, error)
	CreateIpp(ctx context.Context, ipp IPP, activities []Activity, approvals []MonthlyApproval) error
	UpdateIppHeader(ctx context.Context, id string, year int, categoryID string, at time.Time) error
	SubmitIpp(ctx context.Context, id string, at time.Time, check func(activities []Activity) error) error
	SetIppVerify(ctx context.Context, id string, status VerifyStatus, at time.Time) error
	SetIppApproval(ctx context.Context, id string, status ApprovalStatus, at time.Time) error
	DeleteIpp(ctx context.Context, id string) error

	ListActivities(ctx context.Context, ippID string) ([]Activity, error)
	GetActivity(ctx context.Context, ippID, activityID string) (Activity, error)
	CreateActivity(ctx context.Context, activity Activity) error
	UpdateActivity(ctx context.Context, activity Activity) error
	DeleteActivity(ctx context.Context, ippID, activityID string) error

	ListAchievements(ctx context.Context, activityID string) ([]Achievement, error)
	GetAchievement(ctx context.Context, id string) (Achievement, error)
	GetAchievementByMonth(ctx context.Context, activityID string, month int) (Achievement, error)
	UpsertAchievement(ctx context.Context, achievement Achievement) (Achievement, error)
	SetAchievementVerify(ctx context.Context, id string, status VerifyStatus, at time.Time) error
	IppIDForAchievement(ctx context.Context, achievementID string) (string, error)

	ListEvidence(ctx context.Context, achievementID string) ([]Evidence, error)
	GetEvidence(ctx context.Context, id string) (Evidence, error)
	CreateEvidence(ctx context.Context, evidence Evidence) error
	DeleteEvidence(ctx context.Context, id string) error

	ListMonthlyApprovals(ctx context.Context, ippID string) ([]MonthlyApproval, error)
	GetMonthlyApproval(ctx context.Context, id string) (MonthlyApproval, error)
	SetMonthlyApproval(ctx context.Context, id string, status ApprovalStatus, at time.Time) error

	GetCategoryRef(ctx context.Context, id string) (CategoryRef, error)
	GetOwnerProfile(ctx context.Context, npk string) (OwnerProfile, error)
	GetDepartmentName(ctx context.Context, id string) (string, error)
}
