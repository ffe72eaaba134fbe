package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/acp-registry/apiserver/internal/metrics"
	"github.com/acp-registry/apiserver/internal/store"
	"github.com/acp-registry/apiserver/types"
	"github.com/google/uuid"
)

//go:generate mockgen -source=moderation.go -destination=mocks/mocks.go -package=mocks EventPublisher

// DocumentRegistry loads and persists the registry document.
type DocumentRegistry interface {
	LoadDocument(ctx context.Context) (types.Document, error)
	PersistDocument(ctx context.Context, doc types.Document) error
	ListActive(ctx context.Context) ([]types.ActiveUser, error)
	ListPending(ctx context.Context) ([]types.PendingUser, error)
}

// EventPublisher publishes moderation events to a broker channel.
type EventPublisher interface {
	PublishEvent(ctx context.Context, channel string, event types.Event) (string, error)
}

// ModerationService implements the submit and approve use-cases.
//
// By default each operation is an unsynchronized load, mutate and store
// cycle: two operations whose loads interleave both work on the same
// snapshot and the later store wins. WithSerializedMutations runs the
// cycles one at a time instead.
type ModerationService struct {
	registry DocumentRegistry
	schema   types.Schema
	ids      IDStrategy
	now      func() time.Time
	lock     sync.Locker
	events   EventPublisher
	channel  string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a ModerationService.
type Option func(*ModerationService)

// WithSerializedMutations guards every submit and approve cycle with one mutex.
func WithSerializedMutations() Option {
	return func(s *ModerationService) {
		s.lock = &sync.Mutex{}
	}
}

func WithSchema(schema types.Schema) Option {
	return func(s *ModerationService) {
		s.schema = schema
	}
}

func WithIDStrategy(ids IDStrategy) Option {
	return func(s *ModerationService) {
		s.ids = ids
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *ModerationService) {
		s.now = now
	}
}

// WithEvents publishes a types.Event on channel after every persisted change.
func WithEvents(events EventPublisher, channel string) Option {
	return func(s *ModerationService) {
		s.events = events
		s.channel = channel
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ModerationService) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *ModerationService) {
		s.logger = logger
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

func NewModerationService(registry DocumentRegistry, opts ...Option) *ModerationService {
	s := &ModerationService{
		registry: registry,
		schema:   types.DefaultSchema(),
		ids:      ClockIDs{},
		now:      time.Now,
		lock:     noopLocker{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActive returns the approved users.
func (s *ModerationService) ListActive(ctx context.Context) ([]types.ActiveUser, error) {
	return s.registry.ListActive(ctx)
}

// ListPending returns the users awaiting approval.
func (s *ModerationService) ListPending(ctx context.Context) ([]types.PendingUser, error) {
	return s.registry.ListPending(ctx)
}

// Submit records profile as a new pending user. It fails with
// store.ErrInvalidProfile when required fields are missing and with
// store.ErrDuplicate when the username or email is already taken.
func (s *ModerationService) Submit(ctx context.Context, profile types.Profile) (types.PendingUser, error) {
	if missing := s.schema.Missing(profile); len(missing) > 0 {
		s.metrics.ObserveSubmission(metrics.ResultInvalid)
		return types.PendingUser{}, fmt.Errorf("%w: %s required", store.ErrInvalidProfile, strings.Join(missing, ", "))
	}

	user, err := s.submit(ctx, profile)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.metrics.ObserveSubmission(metrics.ResultDuplicate)
		} else {
			s.metrics.ObserveSubmission(metrics.ResultError)
			s.logger.ErrorContext(ctx, "submit failed", "error", err)
		}
		return types.PendingUser{}, err
	}

	s.metrics.ObserveSubmission(metrics.ResultAccepted)
	s.logger.InfoContext(ctx, "user submitted", "user_id", user.ID, "username", user.Profile.Username())
	s.publish(ctx, types.EventUserSubmitted, user.ID, user.Profile.Username(), user.SubmittedAt)
	return user, nil
}

func (s *ModerationService) submit(ctx context.Context, profile types.Profile) (types.PendingUser, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	doc, err := s.registry.LoadDocument(ctx)
	if err != nil {
		return types.PendingUser{}, err
	}
	if doc.HasDuplicate(profile) {
		return types.PendingUser{}, store.ErrDuplicate
	}

	now := s.now().UTC()
	user := doc.AddPending(profile, s.ids.NextID(&doc, now), now)
	if err := s.registry.PersistDocument(ctx, doc); err != nil {
		return types.PendingUser{}, err
	}
	return user, nil
}

// Approve promotes the pending user with id to the active list, dropping
// sensitive and bookkeeping fields. It fails with store.ErrNotFound when no
// pending user has that id.
func (s *ModerationService) Approve(ctx context.Context, id int64) (types.ActiveUser, error) {
	user, err := s.approve(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.ObserveApproval(metrics.ResultNotFound)
		} else {
			s.metrics.ObserveApproval(metrics.ResultError)
			s.logger.ErrorContext(ctx, "approve failed", "user_id", id, "error", err)
		}
		return types.ActiveUser{}, err
	}

	s.metrics.ObserveApproval(metrics.ResultApproved)
	s.logger.InfoContext(ctx, "user approved", "user_id", id, "username", user.Profile.Username())
	s.publish(ctx, types.EventUserApproved, id, user.Profile.Username(), user.Timestamp)
	return user, nil
}

func (s *ModerationService) approve(ctx context.Context, id int64) (types.ActiveUser, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	doc, err := s.registry.LoadDocument(ctx)
	if err != nil {
		return types.ActiveUser{}, err
	}
	index := doc.PendingIndex(id)
	if index < 0 {
		return types.ActiveUser{}, store.ErrNotFound
	}

	user := doc.Promote(index, s.schema, s.now())
	if err := s.registry.PersistDocument(ctx, doc); err != nil {
		return types.ActiveUser{}, err
	}
	return user, nil
}

// publish is best effort: the change is already persisted.
func (s *ModerationService) publish(ctx context.Context, eventType string, userID int64, username string, at time.Time) {
	if s.events == nil {
		return
	}

	event := types.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Username:   username,
		OccurredAt: types.FormatTimestamp(at),
	}
	if _, err := s.events.PublishEvent(ctx, s.channel, event); err != nil {
		s.logger.WarnContext(ctx, "publish event failed", "type", eventType, "user_id", userID, "error", err)
	}
}
