package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/validation"
)

// ReportService files abuse reports and lets admins resolve them.
type ReportService struct {
	reports  domain.ReportRepository
	listings domain.ListingRepository
	users    domain.UserRepository
	validate *validation.Validator
	log      *zap.Logger

	Now   func() time.Time
	NewID func() string
}

func NewReportService(
	reports domain.ReportRepository,
	listings domain.ListingRepository,
	users domain.UserRepository,
	validate *validation.Validator,
	log *zap.Logger,
) *ReportService {
	return &ReportService{
		reports:  reports,
		listings: listings,
		users:    users,
		validate: validate,
		log:      log,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

type CreateReportInput struct {
	TargetType domain.ReportTarget `json:"targetType" validate:"required,oneof=LISTING USER"`
	TargetID   string              `json:"targetId" validate:"notblank"`
	Reason     string              `json:"reason" validate:"notblank,min=10,max=500"`
}

// Create files a report. A reporter may hold only one unresolved report per
// target.
func (s *ReportService) Create(ctx context.Context, who domain.Identity, in CreateReportInput) (*domain.Report, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	var err error
	switch in.TargetType {
	case domain.TargetListing:
		_, err = s.listings.GetByID(ctx, in.TargetID)
	case domain.TargetUser:
		_, err = s.users.GetByID(ctx, in.TargetID)
	}
	if err != nil {
		return nil, err
	}

	r := &domain.Report{
		ID:         s.NewID(),
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Reason:     in.Reason,
		ReporterID: who.ID,
		CreatedAt:  s.Now().UTC(),
	}
	if err := s.reports.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListUnresolved returns open reports oldest first. Admin only.
func (s *ReportService) ListUnresolved(ctx context.Context, who domain.Identity) ([]*domain.Report, error) {
	if !who.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.reports.ListUnresolved(ctx)
}

// Resolve closes a report. Admin only; resolving twice is a conflict.
func (s *ReportService) Resolve(ctx context.Context, who domain.Identity, id string) (*domain.Report, error) {
	if !who.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := s.reports.Resolve(ctx, id, who.ID, s.Now().UTC()); err != nil {
		return nil, err
	}
	s.log.Info("report resolved", zap.String("report_id", id), zap.String("by", who.ID))
	return s.reports.GetByID(ctx, id)
}
