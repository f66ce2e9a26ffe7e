package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campusmarket/internal/domain"
)

type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

var _ domain.ReportRepository = (*ReportRepo)(nil)

func (r *ReportRepo) Create(ctx context.Context, rep *domain.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, target_type, target_id, reason, reporter_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rep.ID, string(rep.TargetType), rep.TargetID, rep.Reason, rep.ReporterID, rep.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ReportRepo) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	rep := &domain.Report{}
	var target string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, target_type, target_id, reason, reporter_id, created_at, resolved_at, resolved_by
		FROM reports WHERE id = ?
	`, id).Scan(&rep.ID, &target, &rep.TargetID, &rep.Reason, &rep.ReporterID,
		&rep.CreatedAt, &rep.ResolvedAt, &rep.ResolvedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	rep.TargetType = domain.ReportTarget(target)
	return rep, nil
}

func (r *ReportRepo) ListUnresolved(ctx context.Context) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.target_type, r.target_id, r.reason, r.reporter_id, r.created_at,
		       u.name, u.email
		FROM reports r
		JOIN users u ON u.id = r.reporter_id
		WHERE r.resolved_at IS NULL
		ORDER BY r.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list unresolved reports: %w", err)
	}
	defer rows.Close()

	res := []*domain.Report{}
	for rows.Next() {
		rep := &domain.Report{Reporter: &domain.UserSummary{}}
		var target string
		if err := rows.Scan(&rep.ID, &target, &rep.TargetID, &rep.Reason, &rep.ReporterID,
			&rep.CreatedAt, &rep.Reporter.Name, &rep.Reporter.Email); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		rep.TargetType = domain.ReportTarget(target)
		rep.Reporter.ID = rep.ReporterID
		res = append(res, rep)
	}
	return res, rows.Err()
}

func (r *ReportRepo) Resolve(ctx context.Context, id, adminID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET resolved_at = ?, resolved_by = ?
		WHERE id = ? AND resolved_at IS NULL
	`, at, adminID, id)
	if err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrConflict
}
