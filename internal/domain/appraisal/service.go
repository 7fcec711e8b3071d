package appraisal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"pms/internal/requestctx"
)

type Service struct {
	Store       StoreAPI
	Files       FileStore
	Recorder    Recorder
	Now         func() time.Time
	NewID       func() string
	FanoutLimit int
}

func NewService(store StoreAPI, files FileStore) *Service {
	return &Service{
		Store:       store,
		Files:       files,
		Recorder:    nopRecorder{},
		Now:         time.Now,
		NewID:       uuid.NewString,
		FanoutLimit: 8,
	}
}

func (s *Service) now() time.Time {
	return s.Now().UTC()
}

func (s *Service) observe(t Transition, err error) {
	outcome := "ok"
	if kind := Kind(err); kind != nil {
		outcome = kindLabel(kind)
	} else if err != nil {
		outcome = "error"
	}
	s.Recorder.Transition(t, outcome)
}

func kindLabel(kind error) string {
	switch kind {
	case ErrValidation:
		return "validation"
	case ErrState:
		return "state"
	case ErrForbidden:
		return "forbidden"
	case ErrNotFound:
		return "not_found"
	default:
		return "transport"
	}
}

func (s *Service) readableIpp(ctx context.Context, actor Actor, id string) (IPP, error) {
	ipp, err := s.Store.GetIpp(ctx, id)
	if err != nil {
		return IPP{}, err
	}
	if !actor.CanRead(ipp) {
		return IPP{}, ErrNotOwner
	}
	return ipp, nil
}

func (s *Service) ListIpps(ctx context.Context, actor Actor, filter IppFilter) ([]IppView, error) {
	if !actor.IsReviewer() {
		filter.OwnerNPK = actor.NPK
	}
	if filter.Stage != "" {
		if _, ok := stageConditions[filter.Stage]; !ok {
			return nil, &FieldError{Field: "stage", Reason: "must be draft, submitted, verified, approved or rejected"}
		}
	}
	ipps, err := s.Store.ListIpps(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]IppView, 0, len(ipps))
	for _, ipp := range ipps {
		out = append(out, NewIppView(actor, ipp))
	}
	return out, nil
}

func (s *Service) GetIpp(ctx context.Context, actor Actor, id string) (IppView, error) {
	ipp, err := s.readableIpp(ctx, actor, id)
	if err != nil {
		return IppView{}, err
	}
	return NewIppView(actor, ipp), nil
}

type IppResult struct {
	Ipp        IppView      `json:"ipp"`
	Activities []Activity   `json:"activities"`
	Weights    WeightReport `json:"weights"`
}

// CreateIpp materializes a draft plan owned by actor, with any initial
// activities and one PENDING approval row per month.
func (s *Service) CreateIpp(ctx context.Context, actor Actor, in CreateIppInput) (IppResult, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if in.ID == "" {
		return IppResult{}, &FieldError{Field: "id", Reason: "required"}
	}
	if in.Year < MinYear || in.Year > MaxYear {
		return IppResult{}, ErrInvalidYear
	}
	category, err := s.categoryFor(ctx, in.CategoryID)
	if err != nil {
		return IppResult{}, err
	}
	if _, err := s.Store.GetIpp(ctx, in.ID); err == nil {
		return IppResult{}, ErrIppExists
	} else if !errors.Is(err, ErrNotFound) {
		return IppResult{}, err
	}

	now := s.now()
	ipp := IPP{
		ID:         in.ID,
		Year:       in.Year,
		OwnerNPK:   actor.NPK,
		CategoryID: category.ID,
		Verify:     VerifyPending,
		Approval:   ApprovalPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	activities := make([]Activity, 0, len(in.Activities))
	seen := map[string]bool{}
	for i := range in.Activities {
		NormalizeActivityInput(&in.Activities[i])
		if err := ValidateActivityInput(in.Activities[i]); err != nil {
			return IppResult{}, err
		}
		if seen[in.Activities[i].Code] {
			return IppResult{}, ErrDuplicateCode
		}
		seen[in.Activities[i].Code] = true
		activities = append(activities, s.newActivity(ipp.ID, in.Activities[i], now))
	}

	approvals := make([]MonthlyApproval, 0, MonthsPerYear)
	for month := 1; month <= MonthsPerYear; month++ {
		approvals = append(approvals, MonthlyApproval{
			ID:        s.NewID(),
			IppID:     ipp.ID,
			Month:     month,
			Approval:  ApprovalPending,
			UpdatedAt: now,
		})
	}

	if err := s.Store.CreateIpp(ctx, ipp, activities, approvals); err != nil {
		return IppResult{}, err
	}
	return IppResult{
		Ipp:        NewIppView(actor, ipp),
		Activities: activities,
		Weights:    BuildWeightReport(activities, category.Limits),
	}, nil
}

func (s *Service) categoryFor(ctx context.Context, id string) (CategoryRef, error) {
	if id == "" {
		return CategoryRef{}, &FieldError{Field: "categoryId", Reason: "required"}
	}
	category, err := s.Store.GetCategoryRef(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return CategoryRef{}, &FieldError{Field: "categoryId", Reason: "unknown category"}
	}
	return category, err
}

func (s *Service) UpdateIppHeader(ctx context.Context, actor Actor, id string, in IppHeaderInput) (IppView, error) {
	ipp, err := s.Store.GetIpp(ctx, id)
	if err != nil {
		return IppView{}, err
	}
	if err := CheckTransition(actor, ipp, TransitionEditHeader); err != nil {
		return IppView{}, err
	}
	if in.Year < MinYear || in.Year > MaxYear {
		return IppView{}, ErrInvalidYear
	}
	category, err := s.categoryFor(ctx, strings.TrimSpace(in.CategoryID))
	if err != nil {
		return IppView{}, err
	}
	now := s.now()
	if err := s.Store.UpdateIppHeader(ctx, id, in.Year, category.ID, now); err != nil {
		return IppView{}, err
	}
	ipp.Year = in.Year
	ipp.CategoryID = category.ID
	ipp.UpdatedAt = now
	return NewIppView(actor, ipp), nil
}

// DeleteIpp removes a draft plan and everything under it. Stored evidence
// content is removed after the rows are gone.
func (s *Service) DeleteIpp(ctx context.Context, actor Actor, id string) error {
	ipp, err := s.Store.GetIpp(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckTransition(actor, ipp, TransitionDelete); err != nil {
		return err
	}
	refs, err := s.evidenceReferences(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteIpp(ctx, id); err != nil {
		return err
	}
	for _, ref := range refs {
		s.removeFile(ctx, ref)
	}
	return nil
}

func (s *Service) evidenceReferences(ctx context.Context, ippID string) ([]string, error) {
	activities, err := s.Store.ListActivities(ctx, ippID)
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, act := range activities {
		more, err := s.activityEvidenceReferences(ctx, act.ID)
		if err != nil {
			return nil, err
		}
		refs = append(refs, more...)
	}
	return refs, nil
}

func (s *Service) activityEvidenceReferences(ctx context.Context, activityID string) ([]string, error) {
	achievements, err := s.Store.ListAchievements(ctx, activityID)
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, ach := range achievements {
		evidence, err := s.Store.ListEvidence(ctx, ach.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range evidence {
			refs = append(refs, e.FileReference)
		}
	}
	return refs, nil
}

func (s *Service) removeFile(ctx context.Context, ref string) {
	if s.Files == nil || ref == "" {
		return
	}
	if err := s.Files.Remove(ctx, ref); err != nil {
		requestctx.Logger(ctx).Warn("evidence file cleanup failed", "reference", ref, "err", err)
	}
}

func (s *Service) SubmitIpp(ctx context.Context, actor Actor, id string) (view IppView, err error) {
	defer func() { s.observe(TransitionSubmit, err) }()

	ipp, err := s.Store.GetIpp(ctx, id)
	if err != nil {
		return IppView{}, err
	}
	if err := CheckTransition(actor, ipp, TransitionSubmit); err != nil {
		return IppView{}, err
	}
	category, err := s.Store.GetCategoryRef(ctx, ipp.CategoryID)
	if err != nil {
		return IppView{}, err
	}
	at := s.now()
	var submitted IPP
	err = s.Store.SubmitIpp(ctx, id, at, func(activities []Activity) error {
		var err error
		submitted, err = Submit(actor, ipp, activities, category.Limits, at)
		return err
	})
	if err != nil {
		return IppView{}, err
	}
	return NewIppView(actor, submitted), nil
}

func (s *Service) SetVerify(ctx context.Context, actor Actor, id string, status VerifyStatus) (view IppView, err error) {
	defer func() { s.observe(TransitionVerify, err) }()

	ipp, err := s.Store.GetIpp(ctx, id)
	if err != nil {
		return IppView{}, err
	}
	next, err := ApplyVerify(actor, ipp, status, s.now())
	if err != nil {
		return IppView{}, err
	}
	if err := s.Store.SetIppVerify(ctx, id, next.Verify, next.UpdatedAt); err != nil {
		return IppView{}, err
	}
	return NewIppView(actor, next), nil
}

func (s *Service) SetApproval(ctx context.Context, actor Actor, id string, status ApprovalStatus) (view IppView, err error) {
	defer func() { s.observe(TransitionApprove, err) }()

	ipp, err := s.Store.GetIpp(ctx, id)
	if err != nil {
		return IppView{}, err
	}
	next, err := ApplyApproval(actor, ipp, status, s.now())
	if err != nil {
		return IppView{}, err
	}
	if err := s.Store.SetIppApproval(ctx, id, next.Approval, next.UpdatedAt); err != nil {
		return IppView{}, err
	}
	return NewIppView(actor, next), nil
}

func (s *Service) WeightReport(ctx context.Context, actor Actor, id string) (WeightReport, error) {
	ipp, err := s.readableIpp(ctx, actor, id)
	if err != nil {
		return WeightReport{}, err
	}
	activities, err := s.Store.ListActivities(ctx, id)
	if err != nil {
		return WeightReport{}, err
	}
	category, err := s.Store.GetCategoryRef(ctx, ipp.CategoryID)
	if err != nil {
		return WeightReport{}, err
	}
	return BuildWeightReport(activities, category.Limits), nil
}

func (s *Service) ListMonthlyApprovals(ctx context.Context, actor Actor, ippID string) ([]MonthlyApproval, error) {
	if _, err := s.readableIpp(ctx, actor, ippID); err != nil {
		return nil, err
	}
	return s.Store.ListMonthlyApprovals(ctx, ippID)
}

func (s *Service) SetMonthlyApproval(ctx context.Context, actor Actor, approvalID string, status ApprovalStatus) (out MonthlyApproval, err error) {
	defer func() { s.observe(TransitionMonthlyApproval, err) }()

	if !actor.IsReviewer() {
		return MonthlyApproval{}, ErrReviewerOnly
	}
	ma, err := s.Store.GetMonthlyApproval(ctx, approvalID)
	if err != nil {
		return MonthlyApproval{}, err
	}
	ipp, err := s.Store.GetIpp(ctx, ma.IppID)
	if err != nil {
		return MonthlyApproval{}, err
	}
	next, err := ApplyMonthlyApproval(actor, ipp, ma, status, s.now())
	if err != nil {
		return MonthlyApproval{}, err
	}
	if err := s.Store.SetMonthlyApproval(ctx, approvalID, next.Approval, next.UpdatedAt); err != nil {
		return MonthlyApproval{}, err
	}
	return next, nil
}
