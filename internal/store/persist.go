package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/careplanner/backend/internal/kvstore"
	"github.com/careplanner/backend/internal/metrics"
	"github.com/careplanner/backend/pkg/model"
	"go.uber.org/zap"
)

// load restores each collection independently; a failure on one key only
// affects that collection
func (s *Store) load(ctx context.Context) {
	now := s.clock()

	var user model.User
	if s.read(ctx, KeyCurrentUser, &user) && user.ID != "" {
		s.currentUser = &user
	}

	var patients []model.Patient
	if s.read(ctx, KeyPatients, &patients) && patients != nil {
		s.patients = normalizePatients(patients)
	} else {
		s.patients = SeedPatients(now)
	}

	var appointments []model.Appointment
	if s.read(ctx, KeyAppointments, &appointments) && appointments != nil {
		s.appointments = appointments
	} else {
		s.appointments = SeedAppointments(now)
	}

	var feedback []model.AppFeedback
	if s.read(ctx, KeyFeedback, &feedback) && feedback != nil {
		s.feedback = feedback
	} else {
		s.feedback = []model.AppFeedback{}
	}

	s.logger.Info("store loaded",
		zap.Bool("session_active", s.currentUser != nil),
		zap.Int("patients", len(s.patients)),
		zap.Int("appointments", len(s.appointments)),
		zap.Int("feedback", len(s.feedback)),
	)
}

// read decodes key into dst and reports whether a usable value was found
func (s *Store) read(ctx context.Context, key string, dst any) bool {
	raw, err := s.storage.GetItem(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Error("failed to read from storage", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Error("failed to parse stored data, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// normalizePatients fills collections the browser demo may have left out
func normalizePatients(patients []model.Patient) []model.Patient {
	for i := range patients {
		if patients[i].Conditions == nil {
			patients[i].Conditions = []string{}
		}
		if patients[i].Logs == nil {
			patients[i].Logs = []model.VitalLog{}
		}
		if patients[i].Messages == nil {
			patients[i].Messages = []model.DoctorMessage{}
		}
	}
	return patients
}

// write serializes value to key. Failures are logged and counted; in-memory
// state stays authoritative.
func (s *Store) write(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to serialize collection", zap.String("key", key), zap.Error(err))
		metrics.RecordStorageWriteFailure(key)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.storage.SetItem(ctx, key, data); err != nil {
		s.logger.Error("failed to persist collection", zap.String("key", key), zap.Error(err))
		metrics.RecordStorageWriteFailure(key)
	}
}

func (s *Store) persistCurrentUser() {
	if s.currentUser != nil {
		s.write(KeyCurrentUser, s.currentUser)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.storage.RemoveItem(ctx, KeyCurrentUser); err != nil {
		s.logger.Error("failed to remove session user", zap.Error(err))
		metrics.RecordStorageWriteFailure(KeyCurrentUser)
	}
}

func (s *Store) persistPatients() {
	s.write(KeyPatients, s.patients)
}

func (s *Store) persistAppointments() {
	s.write(KeyAppointments, s.appointments)
}

func (s *Store) persistFeedback() {
	s.write(KeyFeedback, s.feedback)
}
