package appraisal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pms/internal/platform/querier"
)

const ippColumns = "id, year, owner_npk, category_id, submitted_at, verify, approval, created_at, updated_at"

func scanIpp(row querier.Row) (IPP, error) {
	var p IPP
	err := row.Scan(&p.ID, &p.Year, &p.OwnerNPK, &p.CategoryID, &p.SubmittedAt, &p.Verify, &p.Approval, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetIpp(ctx context.Context, id string) (IPP, error) {
	p, err := scanIpp(s.DB.QueryRow(ctx, "SELECT "+ippColumns+" FROM ipps WHERE id = $1", id))
	if err != nil {
		return IPP{}, lookupErr(err, ErrIppNotFound)
	}
	return p, nil
}

var stageConditions = map[string]string{
	StageDraft:     "submitted_at IS NULL",
	StageSubmitted: "submitted_at IS NOT NULL AND verify = 'PENDING'",
	StageVerified:  "verify = 'VERIFIED' AND approval = 'PENDING'",
	StageApproved:  "approval = 'APPROVED'",
	StageRejected:  "(verify = 'REJECTED' OR approval = 'REJECTED')",
}

func (s *Store) ListIpps(ctx context.Context, filter IppFilter) ([]IPP, error) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerNPK != "" {
		args = append(args, filter.OwnerNPK)
		where = append(where, fmt.Sprintf("owner_npk = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		where = append(where, fmt.Sprintf("year = $%d", len(args)))
	}
	if cond, ok := stageConditions[filter.Stage]; ok {
		where = append(where, cond)
	}

	query := "SELECT " + ippColumns + " FROM ipps"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY year DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, transportErr(err)
	}
	defer rows.Close()

	out := []IPP{}
	for rows.Next() {
		p, err := scanIpp(rows)
		if err != nil {
			return nil, transportErr(err)
		}
		out = append(out, p)
	}
	return out, transportErr(rows.Err())
}

// CreateIpp writes the plan, its initial activities and its twelve monthly
// approval rows in one transaction.
func (s *Store) CreateIpp(ctx context.Context, ipp IPP, activities []Activity, approvals []MonthlyApproval) error {
	err := s.DB.InTx(ctx, func(q querier.Querier) error {
		if _, err := q.Exec(ctx, `
      INSERT INTO ipps (id, year, owner_npk, category_id, submitted_at, verify, approval, created_at, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, ipp.ID, ipp.Year, ipp.OwnerNPK, ipp.CategoryID, ipp.SubmittedAt, ipp.Verify, ipp.Approval, ipp.CreatedAt, ipp.UpdatedAt); err != nil {
			if querier.IsUniqueViolation(err) {
				return ErrIppExists
			}
			return err
		}
		for _, a := range activities {
			if err := insertActivity(ctx, q, a); err != nil {
				return err
			}
		}
		for _, ma := range approvals {
			if _, err := q.Exec(ctx, `
        INSERT INTO monthly_approvals (id, ipp_id, month, approval, updated_at)
        VALUES ($1,$2,$3,$4,$5)
      `, ma.ID, ma.IppID, ma.Month, ma.Approval, ma.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil || Kind(err) != nil {
		return err
	}
	return transportErr(err)
}

// draftState explains a guarded write that matched no plan row.
func draftState(ctx context.Context, q querier.Querier, ippID string) error {
	var submittedAt *time.Time
	err := q.QueryRow(ctx, "SELECT submitted_at FROM ipps WHERE id = $1", ippID).Scan(&submittedAt)
	switch {
	case errors.Is(err, querier.ErrNoRows):
		return ErrIppNotFound
	case err != nil:
		return transportErr(err)
	case submittedAt != nil:
		return ErrAlreadySubmitted
	}
	return ErrIppNotFound
}

// lockDraft holds the plan row for the rest of the transaction, or fails
// when the plan is gone or already submitted. Submission takes the same
// row, so edits and submit are serialized.
func lockDraft(ctx context.Context, q querier.Querier, ippID string) error {
	n, err := q.Exec(ctx, "UPDATE ipps SET updated_at = updated_at WHERE id = $1 AND submitted_at IS NULL", ippID)
	if err != nil {
		return transportErr(err)
	}
	if n == 0 {
		return draftState(ctx, q, ippID)
	}
	return nil
}

// inDraft runs fn in a transaction that holds the draft plan row.
func (s *Store) inDraft(ctx context.Context, ippID string, fn func(q querier.Querier) error) error {
	err := s.DB.InTx(ctx, func(q querier.Querier) error {
		if err := lockDraft(ctx, q, ippID); err != nil {
			return err
		}
		return fn(q)
	})
	if err == nil || Kind(err) != nil {
		return err
	}
	return transportErr(err)
}

func (s *Store) UpdateIppHeader(ctx context.Context, id string, year int, categoryID string, at time.Time) error {
	return s.inDraft(ctx, id, func(q querier.Querier) error {
		_, err := q.Exec(ctx, "UPDATE ipps SET year = $1, category_id = $2, updated_at = $3 WHERE id = $4", year, categoryID, at, id)
		return err
	})
}

// SubmitIpp marks a draft submitted and hands its activities, read under
// the same row lock, to check. A check error rolls the submission back.
func (s *Store) SubmitIpp(ctx context.Context, id string, at time.Time, check func(activities []Activity) error) error {
	err := s.DB.InTx(ctx, func(q querier.Querier) error {
		n, err := q.Exec(ctx, "UPDATE ipps SET submitted_at = $1, updated_at = $2 WHERE id = $3 AND submitted_at IS NULL", at, at, id)
		if err != nil {
			return transportErr(err)
		}
		if n == 0 {
			return draftState(ctx, q, id)
		}
		activities, err := listActivities(ctx, q, id)
		if err != nil {
			return err
		}
		return check(activities)
	})
	if err == nil || Kind(err) != nil {
		return err
	}
	return transportErr(err)
}

func (s *Store) SetIppVerify(ctx context.Context, id string, status VerifyStatus, at time.Time) error {
	n, err := s.DB.Exec(ctx, `
    UPDATE ipps SET verify = $1, updated_at = $2
    WHERE id = $3 AND submitted_at IS NOT NULL AND verify = 'PENDING'
  `, status, at, id)
	return affectedErr(n, err, ErrVerifyClosed)
}

func (s *Store) SetIppApproval(ctx context.Context, id string, status ApprovalStatus, at time.Time) error {
	n, err := s.DB.Exec(ctx, `
    UPDATE ipps SET approval = $1, updated_at = $2
    WHERE id = $3 AND verify = 'VERIFIED' AND approval = 'PENDING'
  `, status, at, id)
	return affectedErr(n, err, ErrApprovalClosed)
}

func (s *Store) DeleteIpp(ctx context.Context, id string) error {
	n, err := s.DB.Exec(ctx, "DELETE FROM ipps WHERE id = $1 AND submitted_at IS NULL", id)
	return affectedErr(n, err, ErrAlreadySubmitted)
}

const activityColumns = "id, ipp_id, code, category, name, kpi, weight, target, deliverable, created_at"

func scanActivity(row querier.Row) (Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.IppID, &a.Code, &a.Category, &a.Name, &a.KPI, &a.Weight, &a.Target, &a.Deliverable, &a.CreatedAt)
	return a, err
}

func insertActivity(ctx context.Context, q querier.Querier, a Activity) error {
	_, err := q.Exec(ctx, `
    INSERT INTO activities (id, ipp_id, code, category, name, kpi, weight, target, deliverable, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, a.ID, a.IppID, a.Code, a.Category, a.Name, a.KPI, a.Weight, a.Target, a.Deliverable, a.CreatedAt)
	if querier.IsUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

func (s *Store) ListActivities(ctx context.Context, ippID string) ([]Activity, error) {
	return listActivities(ctx, s.DB, ippID)
}

func listActivities(ctx context.Context, q querier.Querier, ippID string) ([]Activity, error) {
	rows, err := q.Query(ctx, "SELECT "+activityColumns+" FROM activities WHERE ipp_id = $1 ORDER BY created_at, code", ippID)
	if err != nil {
		return nil, transportErr(err)
	}
	defer rows.Close()

	out := []Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, transportErr(err)
		}
		out = append(out, a)
	}
	return out, transportErr(rows.Err())
}

func (s *Store) GetActivity(ctx context.Context, ippID, activityID string) (Activity, error) {
	a, err := scanActivity(s.DB.QueryRow(ctx, "SELECT "+activityColumns+" FROM activities WHERE ipp_id = $1 AND id = $2", ippID, activityID))
	if err != nil {
		return Activity{}, lookupErr(err, ErrActivityNotFound)
	}
	return a, nil
}

// CreateActivity and the other activity writes hold the draft plan row so
// they cannot land after a concurrent submit.
func (s *Store) CreateActivity(ctx context.Context, activity Activity) error {
	return s.inDraft(ctx, activity.IppID, func(q querier.Querier) error {
		return insertActivity(ctx, q, activity)
	})
}

func (s *Store) UpdateActivity(ctx context.Context, activity Activity) error {
	return s.inDraft(ctx, activity.IppID, func(q querier.Querier) error {
		n, err := q.Exec(ctx, `
      UPDATE activities
      SET code = $1, category = $2, name = $3, kpi = $4, weight = $5, target = $6, deliverable = $7
      WHERE ipp_id = $8 AND id = $9
    `, activity.Code, activity.Category, activity.Name, activity.KPI, activity.Weight, activity.Target, activity.Deliverable, activity.IppID, activity.ID)
		if querier.IsUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return affectedErr(n, err, ErrActivityNotFound)
	})
}

func (s *Store) DeleteActivity(ctx context.Context, ippID, activityID string) error {
	return s.inDraft(ctx, ippID, func(q querier.Querier) error {
		n, err := q.Exec(ctx, "DELETE FROM activities WHERE ipp_id = $1 AND id = $2", ippID, activityID)
		return affectedErr(n, err, ErrActivityNotFound)
	})
}
