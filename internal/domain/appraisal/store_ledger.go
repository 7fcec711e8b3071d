package appraisal

import (
	"context"
	"time"

	"pms/internal/platform/querier"
)

const achievementColumns = "id, activity_id, month, value, status, verify, created_at, updated_at"

func scanAchievement(row querier.Row) (Achievement, error) {
	var a Achievement
	err := row.Scan(&a.ID, &a.ActivityID, &a.Month, &a.Value, &a.Status, &a.Verify, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) ListAchievements(ctx context.Context, activityID string) ([]Achievement, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+achievementColumns+" FROM achievements WHERE activity_id = $1 ORDER BY month", activityID)
	if err != nil {
		return nil, transportErr(err)
	}
	defer rows.Close()

	out := []Achievement{}
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, transportErr(err)
		}
		out = append(out, a)
	}
	return out, transportErr(rows.Err())
}

func (s *Store) GetAchievement(ctx context.Context, id string) (Achievement, error) {
	a, err := scanAchievement(s.DB.QueryRow(ctx, "SELECT "+achievementColumns+" FROM achievements WHERE id = $1", id))
	if err != nil {
		return Achievement{}, lookupErr(err, ErrAchievementNotFound)
	}
	return a, nil
}

func (s *Store) GetAchievementByMonth(ctx context.Context, activityID string, month int) (Achievement, error) {
	a, err := scanAchievement(s.DB.QueryRow(ctx, "SELECT "+achievementColumns+" FROM achievements WHERE activity_id = $1 AND month = $2", activityID, month))
	if err != nil {
		return Achievement{}, lookupErr(err, ErrAchievementNotFound)
	}
	return a, nil
}

// UpsertAchievement is keyed on (activity, month). An existing row keeps its
// id, verify flag and creation time; concurrent writers resolve last-write-wins.
func (s *Store) UpsertAchievement(ctx context.Context, achievement Achievement) (Achievement, error) {
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO achievements (id, activity_id, month, value, status, verify, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (activity_id, month) DO UPDATE
    SET value = excluded.value, status = excluded.status, updated_at = excluded.updated_at
  `, achievement.ID, achievement.ActivityID, achievement.Month, achievement.Value, achievement.Status, achievement.Verify, achievement.CreatedAt, achievement.UpdatedAt); err != nil {
		return Achievement{}, transportErr(err)
	}
	return s.GetAchievementByMonth(ctx, achievement.ActivityID, achievement.Month)
}

func (s *Store) SetAchievementVerify(ctx context.Context, id string, status VerifyStatus, at time.Time) error {
	n, err := s.DB.Exec(ctx, "UPDATE achievements SET verify = $1, updated_at = $2 WHERE id = $3", status, at, id)
	return affectedErr(n, err, ErrAchievementNotFound)
}

func (s *Store) IppIDForAchievement(ctx context.Context, achievementID string) (string, error) {
	var ippID string
	err := s.DB.QueryRow(ctx, `
    SELECT act.ipp_id
    FROM achievements ach
    JOIN activities act ON act.id = ach.activity_id
    WHERE ach.id = $1
  `, achievementID).Scan(&ippID)
	if err != nil {
		return "", lookupErr(err, ErrAchievementNotFound)
	}
	return ippID, nil
}

const evidenceColumns = "id, achievement_id, file_reference, file_name, file_size, mime_type, uploaded_at"

func scanEvidence(row querier.Row) (Evidence, error) {
	var e Evidence
	err := row.Scan(&e.ID, &e.AchievementID, &e.FileReference, &e.FileName, &e.FileSize, &e.MimeType, &e.UploadedAt)
	return e, err
}

func (s *Store) ListEvidence(ctx context.Context, achievementID string) ([]Evidence, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+evidenceColumns+" FROM evidences WHERE achievement_id = $1 ORDER BY uploaded_at, id", achievementID)
	if err != nil {
		return nil, transportErr(err)
	}
	defer rows.Close()

	out := []Evidence{}
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, transportErr(err)
		}
		out = append(out, e)
	}
	return out, transportErr(rows.Err())
}

func (s *Store) GetEvidence(ctx context.Context, id string) (Evidence, error) {
	e, err := scanEvidence(s.DB.QueryRow(ctx, "SELECT "+evidenceColumns+" FROM evidences WHERE id = $1", id))
	if err != nil {
		return Evidence{}, lookupErr(err, ErrEvidenceNotFound)
	}
	return e, nil
}

func (s *Store) CreateEvidence(ctx context.Context, evidence Evidence) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO evidences (id, achievement_id, file_reference, file_name, file_size, mime_type, uploaded_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, evidence.ID, evidence.AchievementID, evidence.FileReference, evidence.FileName, evidence.FileSize, evidence.MimeType, evidence.UploadedAt)
	return transportErr(err)
}

func (s *Store) DeleteEvidence(ctx context.Context, id string) error {
	n, err := s.DB.Exec(ctx, "DELETE FROM evidences WHERE id = $1", id)
	return affectedErr(n, err, ErrEvidenceNotFound)
}

const approvalColumns = "id, ipp_id, month, approval, updated_at"

func scanMonthlyApproval(row querier.Row) (MonthlyApproval, error) {
	var ma MonthlyApproval
	err := row.Scan(&ma.ID, &ma.IppID, &ma.Month, &ma.Approval, &ma.UpdatedAt)
	return ma, err
}

func (s *Store) ListMonthlyApprovals(ctx context.Context, ippID string) ([]MonthlyApproval, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+approvalColumns+" FROM monthly_approvals WHERE ipp_id = $1 ORDER BY month", ippID)
	if err != nil {
		return nil, transportErr(err)
	}
	defer rows.Close()

	out := []MonthlyApproval{}
	for rows.Next() {
		ma, err := scanMonthlyApproval(rows)
		if err != nil {
			return nil, transportErr(err)
		}
		out = append(out, ma)
	}
	return out, transportErr(rows.Err())
}

func (s *Store) GetMonthlyApproval(ctx context.Context, id string) (MonthlyApproval, error) {
	ma, err := scanMonthlyApproval(s.DB.QueryRow(ctx, "SELECT "+approvalColumns+" FROM monthly_approvals WHERE id = $1", id))
	if err != nil {
		return MonthlyApproval{}, lookupErr(err, ErrApprovalNotFound)
	}
	return ma, nil
}

func (s *Store) SetMonthlyApproval(ctx context.Context, id string, status ApprovalStatus, at time.Time) error {
	n, err := s.DB.Exec(ctx, "UPDATE monthly_approvals SET approval = $1, updated_at = $2 WHERE id = $3", status, at, id)
	return affectedErr(n, err, ErrApprovalNotFound)
}

func (s *Store) GetCategoryRef(ctx context.Context, id string) (CategoryRef, error) {
	var c CategoryRef
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, routine_limit, non_routine_limit, project_limit
    FROM categories
    WHERE id = $1
  `, id).Scan(&c.ID, &c.Name, &c.Limits.Routine, &c.Limits.NonRoutine, &c.Limits.Project)
	if err != nil {
		return CategoryRef{}, lookupErr(err, ErrCategoryNotFound)
	}
	return c, nil
}

func (s *Store) GetOwnerProfile(ctx context.Context, npk string) (OwnerProfile, error) {
	var (
		p    OwnerProfile
		dept *string
	)
	err := s.DB.QueryRow(ctx, "SELECT npk, name, department_id FROM users WHERE npk = $1", npk).Scan(&p.NPK, &p.Name, &dept)
	if err != nil {
		return OwnerProfile{}, lookupErr(err, ErrNotFound)
	}
	if dept != nil {
		p.DepartmentID = *dept
	}
	return p, nil
}

func (s *Store) GetDepartmentName(ctx context.Context, id string) (string, error) {
	var name string
	if err := s.DB.QueryRow(ctx, "SELECT name FROM departments WHERE id = $1", id).Scan(&name); err != nil {
		return "", lookupErr(err, ErrNotFound)
	}
	return name, nil
}
