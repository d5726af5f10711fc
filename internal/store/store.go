// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write lost an optimistic lock.
	ErrConflict = errors.New("optimistic lock failed")

	// ErrInvalid is returned when a value is rejected before reaching the database.
	ErrInvalid = errors.New("invalid input")
)

// DataAccessError wraps a query or storage failure.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// wrapErr leaves sentinel errors untouched and wraps everything else.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &DataAccessError{Op: op, Err: err}
}

// MonitoringUpdate carries the optional fields a therapist may change.
type MonitoringUpdate struct {
	RiskLevel *domain.RiskLevel
	Notes     *string
}

// Repository defines the interface for persisting platform data.
type Repository interface {
	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertTherapist creates or updates a therapist profile.
	UpsertTherapist(ctx context.Context, therapist *domain.Therapist) error

	// GetTherapist retrieves a therapist profile by its profile ID.
	GetTherapist(ctx context.Context, therapistID string) (*domain.Therapist, error)

	// GetTherapistByUserID retrieves the therapist profile owned by a user account.
	GetTherapistByUserID(ctx context.Context, userID string) (*domain.Therapist, error)

	// CreateMoodLog stores a new mood entry.
	CreateMoodLog(ctx context.Context, entry *domain.MoodEntry) error

	// CountMoodLogsSince counts a patient's mood entries logged at or after since.
	CountMoodLogsSince(ctx context.Context, patientID string, since time.Time) (int, error)

	// ListMoodLogs returns a patient's mood entries in [start, end], newest first.
	ListMoodLogs(ctx context.Context, patientID string, start, end time.Time) ([]domain.MoodEntry, error)

	// CreateAppointment stores an appointment.
	CreateAppointment(ctx context.Context, appt *domain.Appointment) error

	// CountCompletedAppointments counts COMPLETED appointments starting in [start, end].
	CountCompletedAppointments(ctx context.Context, patientID string, start, end time.Time) (int, error)

	// RecordExerciseCompletion stores a completed exercise.
	RecordExerciseCompletion(ctx context.Context, completion *domain.ExerciseCompletion) error

	// CountCompletedExercises counts exercises completed in [start, end].
	CountCompletedExercises(ctx context.Context, patientID string, start, end time.Time) (int, error)

	// UpsertMonitoringRecord creates the patient's monitoring record or replaces
	// its therapist, risk level and notes.
	UpsertMonitoringRecord(ctx context.Context, rec *domain.MonitoringRecord) error

	// GetMonitoringRecord retrieves the monitoring record of a patient.
	GetMonitoringRecord(ctx context.Context, patientID string) (*domain.MonitoringRecord, error)

	// GetMonitoringRecordByID retrieves a monitoring record by its ID.
	GetMonitoringRecordByID(ctx context.Context, id string) (*domain.MonitoringRecord, error)

	// ListMonitoringRecords returns every monitoring record.
	ListMonitoringRecords(ctx context.Context) ([]*domain.MonitoringRecord, error)

	// UpdateMonitoringEntry applies a therapist update and refreshes last_check_in.
	UpdateMonitoringEntry(ctx context.Context, id string, update MonitoringUpdate, at time.Time) (*domain.MonitoringRecord, error)

	// UpdateRiskLevel sets risk level and notes only if the stored level still
	// equals expected. Returns ErrConflict otherwise.
	UpdateRiskLevel(ctx context.Context, id string, expected, next domain.RiskLevel, notes string, at time.Time) error

	// ListHighRiskPatients returns records with risk level >= minLevel joined
	// with the patient's account, highest risk first.
	ListHighRiskPatients(ctx context.Context, minLevel domain.RiskLevel) ([]domain.HighRiskPatient, error)

	// CreateNotification stores a notification.
	CreateNotification(ctx context.Context, n *domain.Notification) error

	// ListNotifications returns a user's newest notifications.
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)

	// MarkNotificationRead marks one of the user's notifications as read.
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error

	// MarkAllNotificationsRead marks every notification of the user as read.
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)

	// DeleteNotification removes one of the user's notifications.
	DeleteNotification(ctx context.Context, userID, notificationID string) error

	// DeleteReadNotificationsBefore removes read notifications created before the cutoff.
	DeleteReadNotificationsBefore(ctx context.Context, before time.Time) (int64, error)
}
