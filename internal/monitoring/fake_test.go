package monitoring

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/store"
)

type fakeRepo struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	therapists   map[string]*domain.Therapist
	records      map[string]*domain.MonitoringRecord
	moods        map[string][]domain.MoodEntry
	appointments map[string]int
	exercises    map[string]int
	failFor      map[string]error
	writes       int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:        make(map[string]*domain.User),
		therapists:   make(map[string]*domain.Therapist),
		records:      make(map[string]*domain.MonitoringRecord),
		moods:        make(map[string][]domain.MoodEntry),
		appointments: make(map[string]int),
		exercises:    make(map[string]int),
		failFor:      make(map[string]error),
	}
}

func (r *fakeRepo) addPatient(id string, level domain.RiskLevel, therapistID string) {
	r.users[id] = &domain.User{ID: id, Email: id + "@example.com", FullName: "Patient " + id, Role: domain.RolePatient}
	r.records[id] = &domain.MonitoringRecord{ID: "rec-" + id, PatientID: id, TherapistID: therapistID, RiskLevel: level}
}

func (r *fakeRepo) addMood(patientID string, at time.Time, mood domain.Mood, anxiety domain.AnxietyLevel) {
	r.moods[patientID] = append(r.moods[patientID], domain.MoodEntry{
		ID: patientID + at.String(), UserID: patientID, Mood: mood, Anxiety: anxiety, LoggedAt: at,
	})
}

func (r *fakeRepo) record(patientID string) domain.MonitoringRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.records[patientID]
}

func (r *fakeRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) GetTherapist(_ context.Context, therapistID string) (*domain.Therapist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.therapists[therapistID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (r *fakeRepo) GetTherapistByUserID(_ context.Context, userID string) (*domain.Therapist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.therapists {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeRepo) CountMoodLogsSince(_ context.Context, patientID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[patientID]; err != nil {
		return 0, err
	}
	n := 0
	for _, e := range r.moods[patientID] {
		if !e.LoggedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ListMoodLogs(_ context.Context, patientID string, start, end time.Time) ([]domain.MoodEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[patientID]; err != nil {
		return nil, err
	}
	var out []domain.MoodEntry
	for _, e := range r.moods[patientID] {
		if !e.LoggedAt.Before(start) && !e.LoggedAt.After(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	return out, nil
}

func (r *fakeRepo) CountCompletedAppointments(_ context.Context, patientID string, _, _ time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appointments[patientID], nil
}

func (r *fakeRepo) CountCompletedExercises(_ context.Context, patientID string, _, _ time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exercises[patientID], nil
}

func (r *fakeRepo) UpsertMonitoringRecord(_ context.Context, rec *domain.MonitoringRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[rec.PatientID]; ok {
		rec.ID = existing.ID
	} else if rec.ID == "" {
		rec.ID = "rec-" + rec.PatientID
	}
	cp := *rec
	r.records[rec.PatientID] = &cp
	r.writes++
	return nil
}

func (r *fakeRepo) GetMonitoringRecord(_ context.Context, patientID string) (*domain.MonitoringRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[patientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) ListMonitoringRecords(context.Context) ([]*domain.MonitoringRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.MonitoringRecord, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientID < out[j].PatientID })
	return out, nil
}

func (r *fakeRepo) byID(id string) *domain.MonitoringRecord {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (r *fakeRepo) UpdateMonitoringEntry(_ context.Context, id string, update store.MonitoringUpdate, at time.Time) (*domain.MonitoringRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.byID(id)
	if rec == nil {
		return nil, store.ErrNotFound
	}
	if update.RiskLevel != nil {
		rec.RiskLevel = *update.RiskLevel
	}
	if update.Notes != nil {
		rec.Notes = *update.Notes
	}
	rec.LastCheckIn = at
	rec.UpdatedAt = at
	r.writes++
	cp := *rec
	return &cp, nil
}

func (r *fakeRepo) UpdateRiskLevel(_ context.Context, id string, expected, next domain.RiskLevel, notes string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.byID(id)
	if rec == nil {
		return store.ErrNotFound
	}
	if rec.RiskLevel != expected {
		return store.ErrConflict
	}
	rec.RiskLevel = next
	rec.Notes = notes
	rec.UpdatedAt = at
	r.writes++
	return nil
}

func (r *fakeRepo) ListHighRiskPatients(_ context.Context, minLevel domain.RiskLevel) ([]domain.HighRiskPatient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.HighRiskPatient
	for _, rec := range r.records {
		if rec.RiskLevel >= minLevel {
			out = append(out, domain.HighRiskPatient{MonitoringRecord: *rec, RiskLabel: rec.RiskLevel.Label()})
		}
	}
	return out, nil
}

type sentNotification struct {
	userID string
	title  string
	body   string
	data   interface{}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, userID, title, body string, _ domain.NotificationType, data interface{}) (*domain.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID: userID, title: title, body: body, data: data})
	if n.err != nil {
		return nil, n.err
	}
	return &domain.Notification{ID: "n", UserID: userID}, nil
}

var errDBDown = errors.New("database unavailable")
