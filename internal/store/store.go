// Package store holds the CarePlanner domain state: the session user,
// patients, appointments and feedback. Every successful mutation writes the
// affected collection back to key/value storage before returning.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/careplanner/backend/internal/kvstore"
	"github.com/careplanner/backend/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage keys, shared with the browser demo's layout
const (
	KeyCurrentUser  = "careplanner_current_user"
	KeyPatients     = "careplanner_patient_data"
	KeyAppointments = "careplanner_appointments"
	KeyFeedback     = "careplanner_feedback"
)

// ErrInvalidRole is returned by Login for a role outside patient, doctor and admin
var ErrInvalidRole = errors.New("invalid role")

const defaultPersistTimeout = 5 * time.Second

// Store is the domain state manager. It is safe for concurrent use; all
// mutations are serialized and persisted under one lock.
type Store struct {
	mu             sync.RWMutex
	storage        kvstore.Storage
	logger         *zap.Logger
	now            func() time.Time
	newID          func() string
	risk           RiskPolicy
	persistTimeout time.Duration

	currentUser  *model.User
	patients     []model.Patient
	appointments []model.Appointment
	feedback     []model.AppFeedback
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source. Times are still normalized to UTC
// milliseconds.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the generator used for new entity ids
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithRiskPolicy overrides the risk deltas applied when vitals are logged
func WithRiskPolicy(policy RiskPolicy) Option {
	return func(s *Store) {
		if policy != nil {
			s.risk = policy
		}
	}
}

// WithPersistTimeout bounds each storage write
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// Open loads state from storage, falling back to seed data for anything
// absent or unreadable. Storage failures are logged and never fail Open.
func Open(ctx context.Context, storage kvstore.Storage, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		storage:        storage,
		logger:         logger,
		now:            time.Now,
		newID:          newUUIDv7,
		risk:           DefaultRiskPolicy(),
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.load(ctx)
	return s
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// clock returns the current time in UTC truncated to milliseconds so every
// timestamp survives a JSON round-trip unchanged
func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Reset replaces all state with seed data, clears feedback and the session
// user, and persists everything
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.currentUser = nil
	s.patients = SeedPatients(now)
	s.appointments = SeedAppointments(now)
	s.feedback = []model.AppFeedback{}

	s.persistCurrentUser()
	s.persistPatients()
	s.persistAppointments()
	s.persistFeedback()

	s.logger.Info("store reset to seed data",
		zap.Int("patients", len(s.patients)),
		zap.Int("appointments", len(s.appointments)),
	)
}
