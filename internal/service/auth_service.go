package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/mailer"
	"campusmarket/internal/security"
	"campusmarket/internal/validation"
)

// AuthService handles email-link sign-in and request authentication.
type AuthService struct {
	users    domain.UserRepository
	tokens   *security.TokenService
	links    *security.LinkSigner
	mail     mailer.Mailer
	validate *validation.Validator
	log      *zap.Logger

	// CallbackURL is the absolute URL the emailed link points at.
	CallbackURL string

	Now   func() time.Time
	NewID func() string
}

func NewAuthService(
	users domain.UserRepository,
	tokens *security.TokenService,
	links *security.LinkSigner,
	mail mailer.Mailer,
	validate *validation.Validator,
	log *zap.Logger,
	callbackURL string,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		links:       links,
		mail:        mail,
		validate:    validate,
		log:         log,
		CallbackURL: callbackURL,
		Now:         time.Now,
		NewID:       uuid.NewString,
	}
}

type SignInRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int64        `json:"expiresIn"`
	User        *domain.User `json:"user"`
}

// RequestSignInLink emails a one-click sign-in link. A failed delivery is
// reported as ErrDelivery and not retried.
func (s *AuthService) RequestSignInLink(ctx context.Context, in SignInRequest) error {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	tok, err := s.links.Sign(in.Email)
	if err != nil {
		return fmt.Errorf("sign link: %w", err)
	}
	link := s.CallbackURL + "?token=" + url.QueryEscape(tok)
	if err := s.mail.SendSignInLink(ctx, in.Email, link); err != nil {
		s.log.Warn("sign-in link delivery failed", zap.String("to", in.Email), zap.Error(err))
		return domain.Errorf(domain.ErrDelivery, "could not send sign-in email")
	}
	return nil
}

// CompleteSignIn verifies a link token, creates the user on first sign-in
// and issues an access token.
func (s *AuthService) CompleteSignIn(ctx context.Context, token string) (*TokenResponse, error) {
	email, err := s.links.Verify(token)
	if err != nil {
		return nil, domain.Errorf(domain.ErrUnauthorized, "invalid or expired sign-in link")
	}

	now := s.Now().UTC()
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		user = &domain.User{
			ID:              s.NewID(),
			Email:           email,
			Role:            domain.RoleMember,
			EmailVerifiedAt: &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if !errors.Is(err, domain.ErrConflict) {
				return nil, err
			}
			// Lost a race with a concurrent first sign-in.
			if user, err = s.users.GetByEmail(ctx, email); err != nil {
				return nil, err
			}
		} else {
			s.log.Info("user created", zap.String("user_id", user.ID))
		}
	case err != nil:
		return nil, err
	case user.EmailVerifiedAt == nil:
		user.EmailVerifiedAt = &now
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	access, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &TokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.ExpiresIn().Seconds()),
		User:        user,
	}, nil
}

// Authenticate resolves a bearer token to the caller's identity.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (domain.Identity, error) {
	sub, err := s.tokens.Subject(bearer)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, sub)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.IdentityOf(u), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
