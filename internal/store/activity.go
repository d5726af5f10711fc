package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

// CreateMoodLog stores a new mood entry.
func (s *SQLStore) CreateMoodLog(ctx context.Context, entry *domain.MoodEntry) error {
	if !entry.Mood.Valid() {
		return fmt.Errorf("%w: mood %q", ErrInvalid, entry.Mood)
	}
	if entry.Anxiety != "" && !entry.Anxiety.Valid() {
		return fmt.Errorf("%w: anxiety level %q", ErrInvalid, entry.Anxiety)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now()
	}

	query := `
	INSERT INTO mood_logs (id, user_id, mood, anxiety_level, note, logged_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, "insert mood log", query,
		entry.ID, entry.UserID, string(entry.Mood), stringOrNil(string(entry.Anxiety)),
		stringOrNil(entry.Note), entry.LoggedAt.Unix(),
	)
	return err
}

// CountMoodLogsSince counts a patient's mood entries logged at or after since.
func (s *SQLStore) CountMoodLogsSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM mood_logs WHERE user_id = ? AND logged_at >= ?`
	return s.count(ctx, "count mood logs", query, patientID, since.Unix())
}

// ListMoodLogs returns a patient's mood entries in [start, end], newest first.
func (s *SQLStore) ListMoodLogs(ctx context.Context, patientID string, start, end time.Time) ([]domain.MoodEntry, error) {
	query := `
		SELECT id, user_id, mood, anxiety_level, note, logged_at
		FROM mood_logs
		WHERE user_id = ? AND logged_at >= ? AND logged_at <= ?
		ORDER BY logged_at DESC`

	rows, err := s.query(ctx, query, patientID, start.Unix(), end.Unix())
	if err != nil {
		return nil, wrapErr("query mood logs", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close mood log rows", "error", closeErr)
		}
	}()

	var entries []domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		var mood string
		var anxiety, note sql.NullString
		var loggedAt int64

		if err := rows.Scan(&e.ID, &e.UserID, &mood, &anxiety, &note, &loggedAt); err != nil {
			return nil, wrapErr("scan mood log row", err)
		}
		e.Mood = domain.Mood(mood)
		e.Anxiety = domain.AnxietyLevel(anxiety.String)
		e.Note = note.String
		e.LoggedAt = fromUnix(loggedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate mood logs", err)
	}
	return entries, nil
}

// CreateAppointment stores an appointment.
func (s *SQLStore) CreateAppointment(ctx context.Context, appt *domain.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = domain.AppointmentPending
	}

	query := `
	INSERT INTO appointments (id, patient_id, therapist_id, status, start_time, end_time)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET status = excluded.status`

	_, err := s.exec(ctx, "upsert appointment", query,
		appt.ID, appt.PatientID, appt.TherapistID, string(appt.Status),
		appt.StartTime.Unix(), appt.EndTime.Unix(),
	)
	return err
}

// CountCompletedAppointments counts COMPLETED appointments starting in [start, end].
func (s *SQLStore) CountCompletedAppointments(ctx context.Context, patientID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = ? AND status = ? AND start_time >= ? AND start_time <= ?`
	return s.count(ctx, "count completed appointments", query,
		patientID, string(domain.AppointmentCompleted), start.Unix(), end.Unix())
}

// RecordExerciseCompletion stores a completed exercise.
func (s *SQLStore) RecordExerciseCompletion(ctx context.Context, completion *domain.ExerciseCompletion) error {
	if completion.ID == "" {
		completion.ID = uuid.NewString()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now()
	}

	query := `INSERT INTO user_exercises (id, user_id, exercise_id, completed_at) VALUES (?, ?, ?, ?)`
	_, err := s.exec(ctx, "insert exercise completion", query,
		completion.ID, completion.UserID, completion.ExerciseID, completion.CompletedAt.Unix(),
	)
	return err
}

// CountCompletedExercises counts exercises completed in [start, end].
func (s *SQLStore) CountCompletedExercises(ctx context.Context, patientID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM user_exercises
		WHERE user_id = ? AND completed_at >= ? AND completed_at <= ?`
	return s.count(ctx, "count completed exercises", query, patientID, start.Unix(), end.Unix())
}
