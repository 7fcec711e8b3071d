package appraisal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"pms/internal/requestctx"
)

// SummarySource is the raw data the executive summary folds.
type SummarySource struct {
	IPP          IPP               `json:"ipp"`
	Activities   []Activity        `json:"activities"`
	Achievements []Achievement     `json:"achievements"`
	Approvals    []MonthlyApproval `json:"monthlyApprovals"`
	Owner        OwnerProfile      `json:"-"`
	Department   string            `json:"department"`
	Category     CategoryRef       `json:"-"`
	Degraded     []string          `json:"degraded,omitempty"`
}

// readPlan runs independent reads concurrently. Required branches fail the
// plan; optional branches that fail are recorded and yield no data.
type readPlan struct {
	ctx      context.Context
	group    *errgroup.Group
	recorder Recorder

	mu       sync.Mutex
	degraded []string
}

func (s *Service) newReadPlan(ctx context.Context) *readPlan {
	group, gctx := errgroup.WithContext(ctx)
	if s.FanoutLimit > 0 {
		group.SetLimit(s.FanoutLimit)
	}
	return &readPlan{ctx: gctx, group: group, recorder: s.Recorder}
}

func (p *readPlan) required(fn func(ctx context.Context) error) {
	p.group.Go(func() error { return fn(p.ctx) })
}

// optional runs fn; a failure marks branch as degraded. kind labels the
// branch for metrics.
func (p *readPlan) optional(kind, branch string, fn func(ctx context.Context) error) {
	p.group.Go(func() error {
		if err := fn(p.ctx); err != nil {
			if p.ctx.Err() != nil {
				return p.ctx.Err()
			}
			requestctx.Logger(p.ctx).Warn("read branch degraded", "branch", branch, "err", err)
			p.recorder.Degraded(kind)
			p.mu.Lock()
			p.degraded = append(p.degraded, branch)
			p.mu.Unlock()
		}
		return nil
	})
}

func (p *readPlan) wait(parent context.Context) error {
	if err := p.group.Wait(); err != nil {
		return err
	}
	return parent.Err()
}

func (p *readPlan) degradedBranches() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.degraded...)
	sort.Strings(out)
	return out
}

// LoadSummarySource fetches everything the summary needs. The plan and its
// activity list are required; per-activity achievements, monthly approvals
// and header lookups degrade to empty.
func (s *Service) LoadSummarySource(ctx context.Context, ipp IPP) (SummarySource, error) {
	src := SummarySource{IPP: ipp, Activities: []Activity{}, Achievements: []Achievement{}, Approvals: []MonthlyApproval{}}
	stage1 := s.newReadPlan(ctx)

	stage1.required(func(ctx context.Context) error {
		activities, err := s.Store.ListActivities(ctx, ipp.ID)
		if err != nil {
			return err
		}
		src.Activities = activities
		return nil
	})
	stage1.optional("approvals", "monthly_approvals", func(ctx context.Context) error {
		approvals, err := s.Store.ListMonthlyApprovals(ctx, ipp.ID)
		if err != nil {
			return err
		}
		src.Approvals = approvals
		return nil
	})
	stage1.optional("category", "category", func(ctx context.Context) error {
		category, err := s.Store.GetCategoryRef(ctx, ipp.CategoryID)
		if err != nil {
			return err
		}
		src.Category = category
		return nil
	})
	stage1.optional("owner", "owner", func(ctx context.Context) error {
		owner, err := s.Store.GetOwnerProfile(ctx, ipp.OwnerNPK)
		if err != nil {
			return err
		}
		src.Owner = owner
		return nil
	})
	if err := stage1.wait(ctx); err != nil {
		return SummarySource{}, err
	}

	stage2 := s.newReadPlan(ctx)
	perActivity := make([][]Achievement, len(src.Activities))
	for i, act := range src.Activities {
		stage2.optional("achievements", "achievements:"+act.Code, func(ctx context.Context) error {
			list, err := s.Store.ListAchievements(ctx, act.ID)
			if err != nil {
				return err
			}
			perActivity[i] = list
			return nil
		})
	}
	if src.Owner.DepartmentID != "" {
		stage2.optional("department", "department", func(ctx context.Context) error {
			name, err := s.Store.GetDepartmentName(ctx, src.Owner.DepartmentID)
			if err != nil {
				return err
			}
			src.Department = name
			return nil
		})
	}
	if err := stage2.wait(ctx); err != nil {
		return SummarySource{}, err
	}
	for _, list := range perActivity {
		src.Achievements = append(src.Achievements, list...)
	}
	src.Degraded = append(stage1.degradedBranches(), stage2.degradedBranches()...)
	return src, nil
}

// ExecutiveSummarySource returns the raw summary inputs to a reader.
func (s *Service) ExecutiveSummarySource(ctx context.Context, actor Actor, ippID string) (SummarySource, error) {
	ipp, err := s.readableIpp(ctx, actor, ippID)
	if err != nil {
		return SummarySource{}, err
	}
	return s.LoadSummarySource(ctx, ipp)
}

// ExecutiveSummary is available once the plan is approved.
func (s *Service) ExecutiveSummary(ctx context.Context, actor Actor, ippID string) (ExecutiveSummary, error) {
	ipp, err := s.readableIpp(ctx, actor, ippID)
	if err != nil {
		return ExecutiveSummary{}, err
	}
	if ipp.Approval != ApprovalApproved {
		return ExecutiveSummary{}, ErrSummaryLocked
	}
	src, err := s.LoadSummarySource(ctx, ipp)
	if err != nil {
		return ExecutiveSummary{}, err
	}
	out := Summarize(ipp, src.Activities, IndexAchievements(src.Achievements), src.Approvals)
	out.Username = src.Owner.Name
	out.Department = src.Department
	out.Category = src.Category.Name
	out.Degraded = src.Degraded
	return out, nil
}

// ActivityDetail is the per-activity drill-through: each month's
// achievement, score and evidence. Like the summary it opens only after
// approval. Evidence lookups degrade per month.
func (s *Service) ActivityDetail(ctx context.Context, actor Actor, ippID, activityID string) (ActivityDetail, error) {
	ipp, activity, err := s.activityInReadableIpp(ctx, actor, ippID, activityID)
	if err != nil {
		return ActivityDetail{}, err
	}
	if ipp.Approval != ApprovalApproved {
		return ActivityDetail{}, ErrDetailLocked
	}
	achievements, err := s.Store.ListAchievements(ctx, activityID)
	if err != nil {
		return ActivityDetail{}, err
	}

	months := make([]MonthDetail, MonthsPerYear)
	for i := range months {
		months[i] = MonthDetail{Month: i + 1, Evidence: []EvidenceView{}}
	}

	plan := s.newReadPlan(ctx)
	for _, ach := range achievements {
		if !ValidMonth(ach.Month) {
			continue
		}
		slot := &months[ach.Month-1]
		slot.Achievement = &ach
		slot.Score = Score(ach.Value, activity.Weight)
		plan.optional("evidence", fmt.Sprintf("evidence:%s:%d", activity.Code, ach.Month), func(ctx context.Context) error {
			list, err := s.Store.ListEvidence(ctx, ach.ID)
			if err != nil {
				return err
			}
			slot.Evidence = NewEvidenceViews(list)
			return nil
		})
	}
	if err := plan.wait(ctx); err != nil {
		return ActivityDetail{}, err
	}
	return ActivityDetail{Activity: activity, Months: months, Degraded: plan.degradedBranches()}, nil
}
