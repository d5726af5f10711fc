package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/identity"
	"github.com/mindoraRwanda/mindorabeta/internal/risk"
)

const (
	defaultMoodDays = 30
	maxMoodDays     = 365
)

// ActivityHandler records patient activity: mood logs and exercise completions.
type ActivityHandler struct {
	*Handler
	now func() time.Time
}

// NewActivityHandler creates an activity handler.
func NewActivityHandler(base *Handler) *ActivityHandler {
	return &ActivityHandler{Handler: base, now: time.Now}
}

// RegisterRoutes registers activity routes. Callers must already be
// authenticated.
func (h *ActivityHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/moods", func(r chi.Router) {
		r.Post("/", h.LogMood)
		r.Get("/", h.ListMoods)
		r.Get("/trends", h.Trends)
	})
	r.Post("/api/exercises/{exerciseID}/complete", h.CompleteExercise)
}

type moodRequest struct {
	Mood    domain.Mood         `json:"mood"`
	Anxiety domain.AnxietyLevel `json:"anxietyLevel"`
	Note    string              `json:"note"`
}

type trendsResponse struct {
	Days       int     `json:"days"`
	Entries    int     `json:"entries"`
	AvgMood    float64 `json:"avgMood"`
	AvgAnxiety float64 `json:"avgAnxiety"`
}

// LogMood stores a mood entry for the caller.
func (h *ActivityHandler) LogMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	entry := &domain.MoodEntry{
		UserID:   identity.UserIDFromContext(r.Context()),
		Mood:     req.Mood,
		Anxiety:  req.Anxiety,
		Note:     req.Note,
		LoggedAt: h.now(),
	}
	if err := h.repo.CreateMoodLog(r.Context(), entry); err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, entry)
}

// ListMoods returns the caller's mood entries over ?days=, newest first.
func (h *ActivityHandler) ListMoods(w http.ResponseWriter, r *http.Request) {
	days := h.days(r)
	end := h.now()
	entries, err := h.repo.ListMoodLogs(r.Context(), identity.UserIDFromContext(r.Context()),
		end.AddDate(0, 0, -days), end)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.MoodEntry{}
	}
	JSON(w, http.StatusOK, entries)
}

// Trends returns the caller's average mood and anxiety over ?days=.
func (h *ActivityHandler) Trends(w http.ResponseWriter, r *http.Request) {
	days := h.days(r)
	end := h.now()
	entries, err := h.repo.ListMoodLogs(r.Context(), identity.UserIDFromContext(r.Context()),
		end.AddDate(0, 0, -days), end)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	sum := risk.Summarize(entries)
	JSON(w, http.StatusOK, trendsResponse{
		Days:       days,
		Entries:    sum.Entries,
		AvgMood:    sum.AvgMood,
		AvgAnxiety: sum.AvgAnxiety,
	})
}

// CompleteExercise records that the caller finished an exercise.
func (h *ActivityHandler) CompleteExercise(w http.ResponseWriter, r *http.Request) {
	completion := &domain.ExerciseCompletion{
		UserID:      identity.UserIDFromContext(r.Context()),
		ExerciseID:  chi.URLParam(r, "exerciseID"),
		CompletedAt: h.now(),
	}
	if err := h.repo.RecordExerciseCompletion(r.Context(), completion); err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, completion)
}

func (h *ActivityHandler) days(r *http.Request) int {
	days := queryInt(r, "days", defaultMoodDays)
	if days <= 0 {
		return defaultMoodDays
	}
	if days > maxMoodDays {
		return maxMoodDays
	}
	return days
}
