package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/validation"
)

// TextCipher protects message text at rest.
type TextCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(enc string) (string, error)
}

// ThreadService owns buyer/seller conversations and their read state.
type ThreadService struct {
	threads  domain.ThreadRepository
	messages domain.MessageRepository
	listings domain.ListingRepository
	users    domain.UserRepository
	cipher   TextCipher
	validate *validation.Validator
	log      *zap.Logger

	Now   func() time.Time
	NewID func() string
}

func NewThreadService(
	threads domain.ThreadRepository,
	messages domain.MessageRepository,
	listings domain.ListingRepository,
	users domain.UserRepository,
	cipher TextCipher,
	validate *validation.Validator,
	log *zap.Logger,
) *ThreadService {
	return &ThreadService{
		threads:  threads,
		messages: messages,
		listings: listings,
		users:    users,
		cipher:   cipher,
		validate: validate,
		log:      log,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

type OpenThreadInput struct {
	ListingID string `json:"listingId" validate:"notblank"`
	SellerID  string `json:"sellerId" validate:"notblank"`
}

type SendMessageInput struct {
	Text string `json:"text" validate:"notblank,max=1000"`
}

// ThreadDetail is a thread with its full message history.
type ThreadDetail struct {
	Thread   *domain.ThreadOverview `json:"thread"`
	Messages []*domain.Message      `json:"messages"`
}

// Open returns the unique thread between the caller as buyer and the seller
// of a listing, creating it on first contact. Concurrent opens for the same
// triple converge on one row: the loser of the insert race re-reads it.
func (s *ThreadService) Open(ctx context.Context, who domain.Identity, in OpenThreadInput) (*domain.Thread, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.SellerID == who.ID {
		return nil, domain.ErrSelfMessage
	}
	l, err := s.listings.GetByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if l.SellerID != in.SellerID {
		return nil, domain.NewValidationError("sellerId", "does not own the listing")
	}

	existing, err := s.threads.GetByParticipants(ctx, who.ID, in.SellerID, in.ListingID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.Now().UTC()
	t := &domain.Thread{
		ID:        s.NewID(),
		BuyerID:   who.ID,
		SellerID:  in.SellerID,
		ListingID: in.ListingID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.threads.Create(ctx, t)
	if errors.Is(err, domain.ErrConflict) {
		return s.threads.GetByParticipants(ctx, who.ID, in.SellerID, in.ListingID)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns the caller's threads, most recently active first.
func (s *ThreadService) List(ctx context.Context, who domain.Identity) ([]*domain.ThreadOverview, error) {
	threads, err := s.threads.ListForUser(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	for _, t := range threads {
		if t.LastMessage != nil {
			s.decrypt(t.LastMessage)
		}
	}
	return threads, nil
}

// Detail returns a thread and its messages oldest first, then marks the
// other participant's unread messages as read.
func (s *ThreadService) Detail(ctx context.Context, who domain.Identity, threadID string) (*ThreadDetail, error) {
	t, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !t.HasParticipant(who.ID) {
		return nil, domain.ErrForbidden
	}

	overview, err := s.threads.GetOverview(ctx, threadID, who.ID)
	if err != nil {
		return nil, err
	}
	if overview.LastMessage != nil {
		s.decrypt(overview.LastMessage)
	}
	msgs, err := s.messages.ListForThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		s.decrypt(m)
	}

	if _, err := s.messages.MarkRead(ctx, threadID, who.ID, s.Now().UTC()); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return &ThreadDetail{Thread: overview, Messages: msgs}, nil
}

// Send appends a message to a thread and moves the thread to the top of both
// participants' lists.
func (s *ThreadService) Send(ctx context.Context, who domain.Identity, threadID string, in SendMessageInput) (*domain.Message, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	t, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !t.HasParticipant(who.ID) {
		return nil, domain.ErrForbidden
	}

	enc, err := s.cipher.Encrypt(in.Text)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}
	now := s.Now().UTC()
	m := &domain.Message{
		ID:        s.NewID(),
		ThreadID:  threadID,
		SenderID:  who.ID,
		Text:      enc,
		CreatedAt: now,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := s.threads.Touch(ctx, threadID, now); err != nil {
		return nil, fmt.Errorf("touch thread: %w", err)
	}

	m.Text = in.Text
	sender, err := s.users.GetByID(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	m.Sender = &domain.UserSummary{ID: sender.ID, Name: sender.Name, Image: sender.Image}
	return m, nil
}

// decrypt replaces stored text with plaintext. Undecryptable rows are
// logged and shown blank rather than failing the whole thread.
func (s *ThreadService) decrypt(m *domain.Message) {
	plain, err := s.cipher.Decrypt(m.Text)
	if err != nil {
		s.log.Warn("decrypt message", zap.String("message_id", m.ID), zap.Error(err))
		m.Text = ""
		return
	}
	m.Text = plain
}
