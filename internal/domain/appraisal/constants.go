package appraisal

type VerifyStatus string

const (
	VerifyPending  VerifyStatus = "PENDING"
	VerifyVerified VerifyStatus = "VERIFIED"
	VerifyRejected VerifyStatus = "REJECTED"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type CountStatus string

const (
	StatusCount    CountStatus = "COUNT"
	StatusNotCount CountStatus = "NOT_COUNT"
)

type ActivityCategory string

const (
	CategoryRoutine    ActivityCategory = "ROUTINE"
	CategoryNonRoutine ActivityCategory = "NON_ROUTINE"
	CategoryProject    ActivityCategory = "PROJECT"
)

// ActivityCategories is the display and reporting order.
var ActivityCategories = []ActivityCategory{CategoryRoutine, CategoryNonRoutine, CategoryProject}

type Role string

const (
	RoleUser      Role = "USER"
	RoleOperation Role = "OPERATION"
	RoleAdmin     Role = "ADMIN"
)

const (
	WeightEpsilon = 0.0001
	MonthsPerYear = 12
	MinYear       = 1900
	MaxYear       = 2100
)

// Stage names used by listing filters.
const (
	StageDraft     = "draft"
	StageSubmitted = "submitted"
	StageVerified  = "verified"
	StageApproved  = "approved"
	StageRejected  = "rejected"
)

func (v VerifyStatus) Valid() bool {
	return v == VerifyPending || v == VerifyVerified || v == VerifyRejected
}

func (a ApprovalStatus) Valid() bool {
	return a == ApprovalPending || a == ApprovalApproved || a == ApprovalRejected
}

func (c CountStatus) Valid() bool {
	return c == StatusCount || c == StatusNotCount
}

func (c ActivityCategory) Valid() bool {
	return c == CategoryRoutine || c == CategoryNonRoutine || c == CategoryProject
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleOperation || r == RoleAdmin
}

func ValidMonth(month int) bool {
	return month >= 1 && month <= MonthsPerYear
}
