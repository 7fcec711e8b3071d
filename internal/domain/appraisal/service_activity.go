package appraisal

import (
	"context"
	"time"
)

type ActivityResult struct {
	Activity Activity     `json:"activity"`
	Weights  WeightReport `json:"weights"`
}

func (s *Service) newActivity(ippID string, in ActivityInput, now time.Time) Activity {
	return Activity{
		ID:          s.NewID(),
		IppID:       ippID,
		Code:        in.Code,
		Category:    in.Category,
		Name:        in.Name,
		KPI:         in.KPI,
		Weight:      in.Weight,
		Target:      in.Target,
		Deliverable: in.Deliverable,
		CreatedAt:   now,
	}
}

func (s *Service) ListActivities(ctx context.Context, actor Actor, ippID string) ([]Activity, error) {
	if _, err := s.readableIpp(ctx, actor, ippID); err != nil {
		return nil, err
	}
	return s.Store.ListActivities(ctx, ippID)
}

// editableIpp loads a plan whose activity set actor may change.
func (s *Service) editableIpp(ctx context.Context, actor Actor, ippID string) (IPP, error) {
	ipp, err := s.Store.GetIpp(ctx, ippID)
	if err != nil {
		return IPP{}, err
	}
	if err := CheckTransition(actor, ipp, TransitionEditActivities); err != nil {
		return IPP{}, err
	}
	return ipp, nil
}

func (s *Service) weightsAfterEdit(ctx context.Context, ipp IPP) (WeightReport, error) {
	activities, err := s.Store.ListActivities(ctx, ipp.ID)
	if err != nil {
		return WeightReport{}, err
	}
	category, err := s.Store.GetCategoryRef(ctx, ipp.CategoryID)
	if err != nil {
		return WeightReport{}, err
	}
	return BuildWeightReport(activities, category.Limits), nil
}

// CreateActivity saves regardless of category limits; the returned report
// carries any warnings.
func (s *Service) CreateActivity(ctx context.Context, actor Actor, ippID string, in ActivityInput) (ActivityResult, error) {
	ipp, err := s.editableIpp(ctx, actor, ippID)
	if err != nil {
		return ActivityResult{}, err
	}
	NormalizeActivityInput(&in)
	if err := ValidateActivityInput(in); err != nil {
		return ActivityResult{}, err
	}
	activity := s.newActivity(ippID, in, s.now())
	if err := s.Store.CreateActivity(ctx, activity); err != nil {
		return ActivityResult{}, err
	}
	report, err := s.weightsAfterEdit(ctx, ipp)
	if err != nil {
		return ActivityResult{}, err
	}
	return ActivityResult{Activity: activity, Weights: report}, nil
}

func (s *Service) UpdateActivity(ctx context.Context, actor Actor, ippID, activityID string, in ActivityInput) (ActivityResult, error) {
	ipp, err := s.editableIpp(ctx, actor, ippID)
	if err != nil {
		return ActivityResult{}, err
	}
	activity, err := s.Store.GetActivity(ctx, ippID, activityID)
	if err != nil {
		return ActivityResult{}, err
	}
	NormalizeActivityInput(&in)
	if err := ValidateActivityInput(in); err != nil {
		return ActivityResult{}, err
	}
	activity.Code = in.Code
	activity.Category = in.Category
	activity.Name = in.Name
	activity.KPI = in.KPI
	activity.Weight = in.Weight
	activity.Target = in.Target
	activity.Deliverable = in.Deliverable
	if err := s.Store.UpdateActivity(ctx, activity); err != nil {
		return ActivityResult{}, err
	}
	report, err := s.weightsAfterEdit(ctx, ipp)
	if err != nil {
		return ActivityResult{}, err
	}
	return ActivityResult{Activity: activity, Weights: report}, nil
}

func (s *Service) DeleteActivity(ctx context.Context, actor Actor, ippID, activityID string) (WeightReport, error) {
	ipp, err := s.editableIpp(ctx, actor, ippID)
	if err != nil {
		return WeightReport{}, err
	}
	if _, err := s.Store.GetActivity(ctx, ippID, activityID); err != nil {
		return WeightReport{}, err
	}
	refs, err := s.activityEvidenceReferences(ctx, activityID)
	if err != nil {
		return WeightReport{}, err
	}
	if err := s.Store.DeleteActivity(ctx, ippID, activityID); err != nil {
		return WeightReport{}, err
	}
	for _, ref := range refs {
		s.removeFile(ctx, ref)
	}
	return s.weightsAfterEdit(ctx, ipp)
}
