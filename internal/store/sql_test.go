package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	s := &SQLStore{dialect: dialectPostgres}
	got := s.rebind(`SELECT * FROM t WHERE a = ? AND b >= ? LIMIT ?`)
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b >= $2 LIMIT $3`, got)

	s.dialect = dialectSQLite
	assert.Equal(t, `a = ?`, s.rebind(`a = ?`))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	require.Error(t, err)
}

func TestUserAndTherapist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetUser(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertUser(ctx, &domain.User{ID: "u1", Email: "a@example.com", Role: domain.RolePatient}))
	require.NoError(t, s.UpsertUser(ctx, &domain.User{ID: "u1", Email: "b@example.com", FullName: "Aline", Role: domain.RolePatient}))

	user, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", user.Email)
	assert.Equal(t, "Aline", user.FullName)

	require.NoError(t, s.UpsertTherapist(ctx, &domain.Therapist{ID: "t1", UserID: "tu1"}))
	th, err := s.GetTherapist(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "tu1", th.UserID)

	th, err = s.GetTherapistByUserID(ctx, "tu1")
	require.NoError(t, err)
	assert.Equal(t, "t1", th.ID)

	_, err = s.GetTherapist(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoodLogWindows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	for i, offset := range []time.Duration{0, 2 * time.Hour, 48 * time.Hour, 10 * 24 * time.Hour} {
		entry := &domain.MoodEntry{UserID: "p1", Mood: domain.MoodSad, LoggedAt: now.Add(-offset)}
		if i == 0 {
			entry.Anxiety = domain.AnxietySevere
		}
		require.NoError(t, s.CreateMoodLog(ctx, entry))
	}
	require.NoError(t, s.CreateMoodLog(ctx, &domain.MoodEntry{UserID: "p2", Mood: domain.MoodHappy, LoggedAt: now}))

	n, err := s.CountMoodLogsSince(ctx, "p1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	logs, err := s.ListMoodLogs(ctx, "p1", now.Add(-7*24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].LoggedAt.After(logs[1].LoggedAt), "expected newest first")
	assert.Equal(t, domain.AnxietySevere, logs[0].Anxiety)
	assert.Equal(t, domain.AnxietyLevel(""), logs[1].Anxiety)
}

func TestCreateMoodLogRejectsInvalidValues(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateMoodLog(context.Background(), &domain.MoodEntry{UserID: "p1", Mood: "GREAT"})
	assert.ErrorIs(t, err, ErrInvalid)

	err = s.CreateMoodLog(context.Background(), &domain.MoodEntry{UserID: "p1", Mood: domain.MoodSad, Anxiety: "PANIC"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCompletedAppointmentsAndExercises(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	appts := []domain.Appointment{
		{PatientID: "p1", TherapistID: "t1", Status: domain.AppointmentCompleted, StartTime: now.Add(-48 * time.Hour)},
		{PatientID: "p1", TherapistID: "t1", Status: domain.AppointmentCancelled, StartTime: now.Add(-24 * time.Hour)},
		{PatientID: "p1", TherapistID: "t1", Status: domain.AppointmentCompleted, StartTime: now.Add(-40 * 24 * time.Hour)},
	}
	for i := range appts {
		appts[i].EndTime = appts[i].StartTime.Add(time.Hour)
		require.NoError(t, s.CreateAppointment(ctx, &appts[i]))
	}

	n, err := s.CountCompletedAppointments(ctx, "p1", now.AddDate(0, 0, -30), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.RecordExerciseCompletion(ctx, &domain.ExerciseCompletion{UserID: "p1", ExerciseID: "e1", CompletedAt: now.Add(-time.Hour)}))
	require.NoError(t, s.RecordExerciseCompletion(ctx, &domain.ExerciseCompletion{UserID: "p1", ExerciseID: "e1", CompletedAt: now.Add(-2 * time.Hour)}))

	n, err = s.CountCompletedExercises(ctx, "p1", now.AddDate(0, 0, -30), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordExerciseCompletion_SameSecond(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := &domain.ExerciseCompletion{UserID: "p1", ExerciseID: "breathing", CompletedAt: at}
	second := &domain.ExerciseCompletion{UserID: "p1", ExerciseID: "breathing", CompletedAt: at.Add(300 * time.Millisecond)}
	require.NoError(t, s.RecordExerciseCompletion(ctx, first))
	require.NoError(t, s.RecordExerciseCompletion(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)

	n, err := s.CountCompletedExercises(ctx, "p1", at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMonitoringRecordLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &domain.MonitoringRecord{PatientID: "p1", TherapistID: "t1", RiskLevel: domain.RiskMedium, Notes: "intake"}
	require.NoError(t, s.UpsertMonitoringRecord(ctx, rec))
	require.NotEmpty(t, rec.ID)
	firstID := rec.ID

	// A second upsert for the same patient keeps one record.
	again := &domain.MonitoringRecord{PatientID: "p1", TherapistID: "t2", RiskLevel: domain.RiskHigh}
	require.NoError(t, s.UpsertMonitoringRecord(ctx, again))
	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, "t2", again.TherapistID)

	records, err := s.ListMonitoringRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	at := time.Now().Add(time.Minute)
	require.NoError(t, s.UpdateRiskLevel(ctx, firstID, domain.RiskHigh, domain.RiskCritical, "escalated", at))

	err = s.UpdateRiskLevel(ctx, firstID, domain.RiskHigh, domain.RiskNone, "stale", at)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetMonitoringRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCritical, got.RiskLevel)
	assert.Equal(t, "escalated", got.Notes)

	level := domain.RiskMedium
	notes := "reviewed"
	updated, err := s.UpdateMonitoringEntry(ctx, firstID, MonitoringUpdate{RiskLevel: &level, Notes: &notes}, at)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskMedium, updated.RiskLevel)
	assert.Equal(t, at.Unix(), updated.LastCheckIn.Unix())

	_, err = s.UpdateMonitoringEntry(ctx, "missing", MonitoringUpdate{Notes: &notes}, at)
	assert.ErrorIs(t, err, ErrNotFound)

	bad := domain.RiskLevel(9)
	_, err = s.UpdateMonitoringEntry(ctx, firstID, MonitoringUpdate{RiskLevel: &bad}, at)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestListHighRiskPatients(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []struct {
		id    string
		level domain.RiskLevel
	}{{"p1", domain.RiskHigh}, {"p2", domain.RiskCritical}, {"p3", domain.RiskMedium}} {
		require.NoError(t, s.UpsertUser(ctx, &domain.User{ID: p.id, Email: p.id + "@example.com", Role: domain.RolePatient}))
		require.NoError(t, s.UpsertMonitoringRecord(ctx, &domain.MonitoringRecord{PatientID: p.id, RiskLevel: p.level}))
	}

	patients, err := s.ListHighRiskPatients(ctx, domain.RiskHigh)
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "p2", patients[0].PatientID)
	assert.Equal(t, "CRITICAL", patients[0].RiskLabel)
	assert.Equal(t, "HIGH", patients[1].RiskLabel)
	assert.Equal(t, "p1@example.com", patients[1].Email)
}

func TestNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -40)

	require.NoError(t, s.CreateNotification(ctx, &domain.Notification{UserID: "u1", Title: "old", CreatedAt: old}))
	fresh := &domain.Notification{UserID: "u1", Title: "fresh", Data: []byte(`{"k":1}`)}
	require.NoError(t, s.CreateNotification(ctx, fresh))

	list, err := s.ListNotifications(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "fresh", list[0].Title)
	assert.Equal(t, domain.NotificationSystem, list[0].Type)
	assert.JSONEq(t, `{"k":1}`, string(list[0].Data))

	require.NoError(t, s.MarkNotificationRead(ctx, "u1", fresh.ID))
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "u2", fresh.ID), ErrNotFound)

	n, err := s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	deleted, err := s.DeleteReadNotificationsBefore(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, s.DeleteNotification(ctx, "u1", fresh.ID))
	assert.ErrorIs(t, s.DeleteNotification(ctx, "u1", fresh.ID), ErrNotFound)
}

func TestWrapErr(t *testing.T) {
	assert.Nil(t, wrapErr("op", nil))
	assert.ErrorIs(t, wrapErr("op", ErrNotFound), ErrNotFound)

	err := wrapErr("query", errors.New("boom"))
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "query", dae.Op)
	assert.Equal(t, "query: boom", err.Error())
	assert.Same(t, err, wrapErr("outer", err))
}
