package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

// Neutral defaults used when a window holds no readings.
const (
	DefaultAvgMood    = 3.0
	DefaultAvgAnxiety = 1.0
)

// Recent holds short-window activity used by the pattern and inactivity rules.
type Recent struct {
	LogsLastDay   int
	LogsLast3Days int
	// LastWeek holds the entries of the trailing 7 days.
	LastWeek []domain.MoodEntry
}

// Signals are the aggregated inputs to the rule table.
type Signals struct {
	WindowDays            int
	MoodEntries           int
	AvgMood               float64
	AvgAnxiety            float64
	CompletedAppointments int
	CompletedExercises    int
	Recent                *Recent
}

// Assessment is the outcome of evaluating the rule table.
type Assessment struct {
	Level           domain.RiskLevel
	Score           float64
	Factors         []string
	Recommendations []string
	Summary         string
}

// Notes joins the fired factors into the free-text note stored on a record.
func (a Assessment) Notes() string {
	return strings.Join(a.Factors, "; ")
}

// MoodSummary is the mean of mapped mood and anxiety values over a window.
type MoodSummary struct {
	Entries    int
	AvgMood    float64
	AvgAnxiety float64
}

// Summarize averages mood (1–5) and anxiety (0–4) over entries. Missing data
// is neutral: 3.0 mood, 1.0 anxiety. Entries without an anxiety reading do
// not count toward the anxiety mean.
func Summarize(entries []domain.MoodEntry) MoodSummary {
	sum := MoodSummary{Entries: len(entries), AvgMood: DefaultAvgMood, AvgAnxiety: DefaultAvgAnxiety}

	var moodTotal, moodN, anxietyTotal, anxietyN int
	for _, e := range entries {
		if v := e.Mood.Scale(); v > 0 {
			moodTotal += v
			moodN++
		}
		if v, ok := e.Anxiety.Scale(); ok {
			anxietyTotal += v
			anxietyN++
		}
	}
	if moodN > 0 {
		sum.AvgMood = float64(moodTotal) / float64(moodN)
	}
	if anxietyN > 0 {
		sum.AvgAnxiety = float64(anxietyTotal) / float64(anxietyN)
	}
	return sum
}

// Evaluate runs the report rules. The additive score is rounded half away
// from zero and capped at 3; fired floor rules then lift the level.
func Evaluate(s Signals) Assessment {
	a := evaluate(s, ScopeReport)

	for _, r := range recommendations {
		if r.applies(s) {
			a.Recommendations = append(a.Recommendations, r.text)
		}
	}
	a.Summary = fmt.Sprintf(
		"Patient has logged %d mood entries over the past %d days. "+
			"Average mood: %.1f/5. Average anxiety: %.1f/4. "+
			"Attended %d therapy sessions and completed %d exercises.",
		s.MoodEntries, s.WindowDays, s.AvgMood, s.AvgAnxiety,
		s.CompletedAppointments, s.CompletedExercises,
	)
	return a
}

// EvaluateDaily runs the scheduled-pass rules over recent activity. The level
// is the maximum floor of the fired rules.
func EvaluateDaily(recent Recent) Assessment {
	return evaluate(Signals{Recent: &recent}, ScopeDaily)
}

func evaluate(s Signals, scope Scope) Assessment {
	a := Assessment{Factors: []string{}, Recommendations: []string{}}
	floor := domain.RiskNone

	for _, r := range Rules {
		if r.Scope&scope == 0 || !r.Applies(s) {
			continue
		}
		a.Factors = append(a.Factors, r.Factor)
		a.Score += r.Weight
		if r.Floor > floor {
			floor = r.Floor
		}
	}

	level := domain.RiskLevel(math.Min(math.Round(a.Score), float64(domain.RiskCritical)))
	if floor > level {
		level = floor
	}
	a.Level = level.Clamp()
	return a
}
