// Package monitoring computes and persists patient risk levels and alerts
// therapists when a patient escalates.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/risk"
	"github.com/mindoraRwanda/mindorabeta/internal/store"
)

const (
	// DefaultReportDays is the report window used when none is given.
	DefaultReportDays = 30
	// MaxReportDays bounds the report window.
	MaxReportDays = 365

	maxNotesLength = 2000
	day            = 24 * time.Hour
	week           = 7 * day
)

// Repository is the storage the monitoring service reads and writes.
type Repository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetTherapist(ctx context.Context, therapistID string) (*domain.Therapist, error)
	GetTherapistByUserID(ctx context.Context, userID string) (*domain.Therapist, error)
	CountMoodLogsSince(ctx context.Context, patientID string, since time.Time) (int, error)
	ListMoodLogs(ctx context.Context, patientID string, start, end time.Time) ([]domain.MoodEntry, error)
	CountCompletedAppointments(ctx context.Context, patientID string, start, end time.Time) (int, error)
	CountCompletedExercises(ctx context.Context, patientID string, start, end time.Time) (int, error)
	UpsertMonitoringRecord(ctx context.Context, rec *domain.MonitoringRecord) error
	GetMonitoringRecord(ctx context.Context, patientID string) (*domain.MonitoringRecord, error)
	ListMonitoringRecords(ctx context.Context) ([]*domain.MonitoringRecord, error)
	UpdateMonitoringEntry(ctx context.Context, id string, update store.MonitoringUpdate, at time.Time) (*domain.MonitoringRecord, error)
	UpdateRiskLevel(ctx context.Context, id string, expected, next domain.RiskLevel, notes string, at time.Time) error
	ListHighRiskPatients(ctx context.Context, minLevel domain.RiskLevel) ([]domain.HighRiskPatient, error)
}

// Notifier delivers a notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, typ domain.NotificationType, data interface{}) (*domain.Notification, error)
}

// Options tunes the daily pass.
type Options struct {
	// Workers bounds how many patients are evaluated concurrently.
	Workers int
	// PatientTimeout bounds the work done for a single patient.
	PatientTimeout time.Duration
	// LockTTL is how long a patient lock survives a crashed holder.
	LockTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.PatientTimeout <= 0 {
		o.PatientTimeout = 30 * time.Second
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 2 * o.PatientTimeout
	}
	return o
}

// Service is the monitoring orchestrator.
type Service struct {
	repo     Repository
	notifier Notifier
	locker   Locker
	opts     Options
	now      func() time.Time
}

// NewService creates a monitoring service. A nil locker uses a MemoryLocker;
// a nil notifier disables therapist alerts.
func NewService(repo Repository, notifier Notifier, locker Locker, opts Options) *Service {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		locker:   locker,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// CreateEntry opens (or replaces) a patient's monitoring record on behalf of
// the therapist account therapistUserID.
func (s *Service) CreateEntry(ctx context.Context, patientID, therapistUserID string, level domain.RiskLevel, notes string) (*domain.MonitoringRecord, error) {
	if err := validateEntry(&level, &notes); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, patientID); err != nil {
		return nil, fmt.Errorf("get patient %s: %w", patientID, err)
	}

	rec := &domain.MonitoringRecord{
		PatientID:   patientID,
		RiskLevel:   level,
		Notes:       notes,
		LastCheckIn: s.now(),
	}
	therapist, err := s.repo.GetTherapistByUserID(ctx, therapistUserID)
	switch {
	case err == nil:
		rec.TherapistID = therapist.ID
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("get therapist profile: %w", err)
	}

	if err := s.repo.UpsertMonitoringRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("save monitoring record: %w", err)
	}
	slog.Info("Monitoring entry created", "patient_id", patientID, "risk_level", int(rec.RiskLevel))
	return rec, nil
}

// UpdateEntry applies a therapist's change to a monitoring record.
func (s *Service) UpdateEntry(ctx context.Context, entryID string, update store.MonitoringUpdate) (*domain.MonitoringRecord, error) {
	if err := validateEntry(update.RiskLevel, update.Notes); err != nil {
		return nil, err
	}
	rec, err := s.repo.UpdateMonitoringEntry(ctx, entryID, update, s.now())
	if err != nil {
		return nil, fmt.Errorf("update monitoring entry %s: %w", entryID, err)
	}
	return rec, nil
}

func validateEntry(level *domain.RiskLevel, notes *string) error {
	if level != nil && !level.Valid() {
		return fmt.Errorf("%w: risk level must be 0-3", store.ErrInvalid)
	}
	if notes != nil && len(*notes) > maxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", store.ErrInvalid, maxNotesLength)
	}
	return nil
}

// GetPatientMonitoring returns the patient's monitoring record.
func (s *Service) GetPatientMonitoring(ctx context.Context, patientID string) (*domain.MonitoringRecord, error) {
	return s.repo.GetMonitoringRecord(ctx, patientID)
}

// HighRiskPatients lists patients at HIGH or CRITICAL risk.
func (s *Service) HighRiskPatients(ctx context.Context) ([]domain.HighRiskPatient, error) {
	return s.repo.ListHighRiskPatients(ctx, domain.RiskHigh)
}

// GenerateReport evaluates a patient over the trailing days. days <= 0 uses
// DefaultReportDays; larger windows are capped at MaxReportDays. The report
// is not persisted.
func (s *Service) GenerateReport(ctx context.Context, patientID string, days int) (*domain.Report, error) {
	if days <= 0 {
		days = DefaultReportDays
	}
	if days > MaxReportDays {
		days = MaxReportDays
	}

	if _, err := s.repo.GetUser(ctx, patientID); err != nil {
		return nil, fmt.Errorf("get patient %s: %w", patientID, err)
	}

	end := s.now().UTC()
	start := end.Add(-time.Duration(days) * day)

	entries, err := s.repo.ListMoodLogs(ctx, patientID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list mood logs: %w", err)
	}
	appointments, err := s.repo.CountCompletedAppointments(ctx, patientID, start, end)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	exercises, err := s.repo.CountCompletedExercises(ctx, patientID, start, end)
	if err != nil {
		return nil, fmt.Errorf("count exercises: %w", err)
	}
	lastWeek, err := s.lastWeek(ctx, patientID, entries, days, end)
	if err != nil {
		return nil, err
	}

	mood := risk.Summarize(entries)
	a := risk.Evaluate(risk.Signals{
		WindowDays:            days,
		MoodEntries:           mood.Entries,
		AvgMood:               mood.AvgMood,
		AvgAnxiety:            mood.AvgAnxiety,
		CompletedAppointments: appointments,
		CompletedExercises:    exercises,
		Recent:                &risk.Recent{LastWeek: lastWeek},
	})

	return &domain.Report{
		PatientID: patientID,
		Days:      days,
		Period:    domain.Period{Start: start, End: end},
		MoodTrends: domain.MoodTrends{
			AverageMood:  round2(mood.AvgMood),
			MoodEntries:  mood.Entries,
			AnxietyLevel: round2(mood.AvgAnxiety),
		},
		ActivityMetrics: domain.ActivityMetrics{
			AppointmentsAttended: appointments,
			ExercisesCompleted:   exercises,
			TotalEngagement:      mood.Entries + appointments + exercises,
		},
		RiskAssessment: domain.RiskAssessment{
			CurrentRiskLevel: a.Level,
			RiskFactors:      a.Factors,
			Recommendations:  a.Recommendations,
		},
		Summary: a.Summary,
	}, nil
}

// lastWeek returns the entries of the trailing 7 days, reusing the report
// window when it already covers them. entries are newest first.
func (s *Service) lastWeek(ctx context.Context, patientID string, entries []domain.MoodEntry, days int, end time.Time) ([]domain.MoodEntry, error) {
	since := end.Add(-week)
	if days < 7 {
		recent, err := s.repo.ListMoodLogs(ctx, patientID, since, end)
		if err != nil {
			return nil, fmt.Errorf("list recent mood logs: %w", err)
		}
		return recent, nil
	}
	n := 0
	for n < len(entries) && !entries[n].LoggedAt.Before(since) {
		n++
	}
	return entries[:n], nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
