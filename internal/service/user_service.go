package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/validation"
)

// UserService provides profile and role operations.
type UserService struct {
	users    domain.UserRepository
	validate *validation.Validator
	log      *zap.Logger

	Now func() time.Time
}

func NewUserService(users domain.UserRepository, validate *validation.Validator, log *zap.Logger) *UserService {
	return &UserService{users: users, validate: validate, log: log, Now: time.Now}
}

type UpdateProfileInput struct {
	Name     *string `json:"name" validate:"omitnil,notblank,max=100"`
	Major    *string `json:"major" validate:"omitnil,max=100"`
	GradYear *int    `json:"gradYear" validate:"omitnil,gte=1900,lte=2100"`
}

type SetRoleInput struct {
	Role domain.Role `json:"role" validate:"required,oneof=MEMBER ADMIN"`
}

func (s *UserService) Me(ctx context.Context, who domain.Identity) (*domain.User, error) {
	return s.users.GetByID(ctx, who.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, who domain.Identity, in UpdateProfileInput) (*domain.User, error) {
	trimPtr(in.Name)
	trimPtr(in.Major)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = in.Name
	}
	if in.Major != nil {
		u.Major = in.Major
		if strings.TrimSpace(*in.Major) == "" {
			u.Major = nil
		}
	}
	if in.GradYear != nil {
		u.GradYear = in.GradYear
	}
	u.UpdatedAt = s.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetRole changes another user's role. Admin only.
func (s *UserService) SetRole(ctx context.Context, who domain.Identity, userID string, in SetRoleInput) (*domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if !who.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if userID == who.ID {
		return nil, domain.NewValidationError("role", "cannot change your own role")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Role = in.Role
	u.UpdatedAt = s.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user role changed", zap.String("user_id", userID), zap.String("role", string(in.Role)), zap.String("by", who.ID))
	return u, nil
}
