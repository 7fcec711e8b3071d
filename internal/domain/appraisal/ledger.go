package appraisal

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
)

type AchievementInput struct {
	Value  *float64    `json:"value"`
	Status CountStatus `json:"status"`
}

// FileRef points at evidence content that is already stored.
type FileRef struct {
	Reference string
	Name      string
	Size      int64
	MimeType  string
}

func (s *Service) activityInReadableIpp(ctx context.Context, actor Actor, ippID, activityID string) (IPP, Activity, error) {
	ipp, err := s.readableIpp(ctx, actor, ippID)
	if err != nil {
		return IPP{}, Activity{}, err
	}
	activity, err := s.Store.GetActivity(ctx, ippID, activityID)
	if err != nil {
		return IPP{}, Activity{}, err
	}
	return ipp, activity, nil
}

func (s *Service) ListAchievements(ctx context.Context, actor Actor, ippID, activityID string) ([]Achievement, error) {
	if _, _, err := s.activityInReadableIpp(ctx, actor, ippID, activityID); err != nil {
		return nil, err
	}
	return s.Store.ListAchievements(ctx, activityID)
}

// AchievementForMonth resolves the achievement recorded for one month.
func (s *Service) AchievementForMonth(ctx context.Context, actor Actor, ippID, activityID string, month int) (Achievement, error) {
	if !ValidMonth(month) {
		return Achievement{}, ErrInvalidMonth
	}
	if _, _, err := s.activityInReadableIpp(ctx, actor, ippID, activityID); err != nil {
		return Achievement{}, err
	}
	return s.Store.GetAchievementByMonth(ctx, activityID, month)
}

// UpsertAchievement records the owner's value for (activity, month). It is
// allowed in any workflow state. A new row starts PENDING; an existing row
// keeps its verify flag.
func (s *Service) UpsertAchievement(ctx context.Context, actor Actor, ippID, activityID string, month int, in AchievementInput) (out Achievement, err error) {
	defer func() { s.observe(TransitionEditAchievement, err) }()

	if !ValidMonth(month) {
		return Achievement{}, ErrInvalidMonth
	}
	if in.Status == "" {
		in.Status = StatusCount
	}
	if !in.Status.Valid() {
		return Achievement{}, &FieldError{Field: "status", Reason: "must be COUNT or NOT_COUNT"}
	}
	if in.Value != nil && (math.IsNaN(*in.Value) || math.IsInf(*in.Value, 0)) {
		return Achievement{}, &FieldError{Field: "value", Reason: "must be a finite number"}
	}

	ipp, err := s.Store.GetIpp(ctx, ippID)
	if err != nil {
		return Achievement{}, err
	}
	if _, err := s.Store.GetActivity(ctx, ippID, activityID); err != nil {
		return Achievement{}, err
	}
	if err := CheckTransition(actor, ipp, TransitionEditAchievement); err != nil {
		return Achievement{}, err
	}

	now := s.now()
	return s.Store.UpsertAchievement(ctx, Achievement{
		ID:         s.NewID(),
		ActivityID: activityID,
		Month:      month,
		Value:      in.Value,
		Status:     in.Status,
		Verify:     VerifyPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (s *Service) SetAchievementVerify(ctx context.Context, actor Actor, achievementID string, status VerifyStatus) (out Achievement, err error) {
	defer func() { s.observe(TransitionVerifyAchievement, err) }()

	if status != VerifyVerified && status != VerifyRejected {
		return Achievement{}, ErrInvalidStatus
	}
	if !actor.IsReviewer() {
		return Achievement{}, ErrReviewerOnly
	}
	achievement, err := s.Store.GetAchievement(ctx, achievementID)
	if err != nil {
		return Achievement{}, err
	}
	ipp, err := s.ippForAchievement(ctx, achievementID)
	if err != nil {
		return Achievement{}, err
	}
	if err := CheckTransition(actor, ipp, TransitionVerifyAchievement); err != nil {
		return Achievement{}, err
	}
	now := s.now()
	if err := s.Store.SetAchievementVerify(ctx, achievementID, status, now); err != nil {
		return Achievement{}, err
	}
	achievement.Verify = status
	achievement.UpdatedAt = now
	return achievement, nil
}

func (s *Service) ippForAchievement(ctx context.Context, achievementID string) (IPP, error) {
	ippID, err := s.Store.IppIDForAchievement(ctx, achievementID)
	if err != nil {
		return IPP{}, err
	}
	return s.Store.GetIpp(ctx, ippID)
}

func (s *Service) ListEvidence(ctx context.Context, actor Actor, achievementID string) ([]EvidenceView, error) {
	ipp, err := s.ippForAchievement(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	if !actor.CanRead(ipp) {
		return nil, ErrNotOwner
	}
	list, err := s.Store.ListEvidence(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	return NewEvidenceViews(list), nil
}

// AttachEvidence links already stored content to an achievement. There is
// no limit on evidence per achievement.
func (s *Service) AttachEvidence(ctx context.Context, actor Actor, achievementID string, file FileRef) (EvidenceView, error) {
	if strings.TrimSpace(file.Reference) == "" {
		return EvidenceView{}, &FieldError{Field: "fileReference", Reason: "required"}
	}
	ipp, err := s.ippForAchievement(ctx, achievementID)
	if err != nil {
		return EvidenceView{}, err
	}
	if err := CheckTransition(actor, ipp, TransitionEditAchievement); err != nil {
		return EvidenceView{}, err
	}
	return s.insertEvidence(ctx, achievementID, file)
}

func (s *Service) insertEvidence(ctx context.Context, achievementID string, file FileRef) (EvidenceView, error) {
	name := file.Name
	if name == "" {
		name = FileNameFromReference(file.Reference)
	}
	evidence := Evidence{
		ID:            s.NewID(),
		AchievementID: achievementID,
		FileReference: file.Reference,
		FileName:      name,
		FileSize:      file.Size,
		MimeType:      file.MimeType,
		UploadedAt:    s.now(),
	}
	if err := s.Store.CreateEvidence(ctx, evidence); err != nil {
		return EvidenceView{}, err
	}
	return NewEvidenceView(evidence), nil
}

// UploadEvidence stores the content and attaches it. The achievement must
// exist before anything is written.
func (s *Service) UploadEvidence(ctx context.Context, actor Actor, achievementID string, up Upload) (EvidenceView, error) {
	ipp, err := s.ippForAchievement(ctx, achievementID)
	if err != nil {
		return EvidenceView{}, err
	}
	if err := CheckTransition(actor, ipp, TransitionEditAchievement); err != nil {
		return EvidenceView{}, err
	}
	name := filepath.Base(strings.TrimSpace(up.Name))
	if name == "" || name == "." || !AllowedEvidenceFile(name) {
		return EvidenceView{}, &FieldError{Field: "file", Reason: "file type not allowed"}
	}
	if s.Files == nil {
		return EvidenceView{}, transportErr(errors.New("evidence storage not configured"))
	}
	stored, err := s.Files.Save(ctx, name, up.Content)
	if errors.Is(err, ErrFileTooLarge) {
		return EvidenceView{}, err
	}
	if err != nil {
		return EvidenceView{}, transportErr(err)
	}
	view, err := s.insertEvidence(ctx, achievementID, FileRef{
		Reference: stored.Reference,
		Name:      name,
		Size:      stored.Size,
		MimeType:  stored.MimeType,
	})
	if err != nil {
		s.removeFile(ctx, stored.Reference)
		return EvidenceView{}, err
	}
	return view, nil
}

// RemoveEvidence fails with a not-found error when the evidence is absent.
func (s *Service) RemoveEvidence(ctx context.Context, actor Actor, evidenceID string) error {
	evidence, err := s.Store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return err
	}
	ipp, err := s.ippForAchievement(ctx, evidence.AchievementID)
	if err != nil {
		return err
	}
	if err := CheckTransition(actor, ipp, TransitionEditAchievement); err != nil {
		return err
	}
	if err := s.Store.DeleteEvidence(ctx, evidenceID); err != nil {
		return err
	}
	s.removeFile(ctx, evidence.FileReference)
	return nil
}
