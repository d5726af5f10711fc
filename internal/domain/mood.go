package domain

import (
	"time"
)

// Mood is a self-reported mood on a five point scale.
type Mood string

const (
	MoodVerySad   Mood = "VERY_SAD"
	MoodSad       Mood = "SAD"
	MoodNeutral   Mood = "NEUTRAL"
	MoodHappy     Mood = "HAPPY"
	MoodVeryHappy Mood = "VERY_HAPPY"
)

// Scale maps the mood to 1 (VERY_SAD) .. 5 (VERY_HAPPY).
// Unknown values map to 0.
func (m Mood) Scale() int {
	switch m {
	case MoodVerySad:
		return 1
	case MoodSad:
		return 2
	case MoodNeutral:
		return 3
	case MoodHappy:
		return 4
	case MoodVeryHappy:
		return 5
	}
	return 0
}

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool { return m.Scale() > 0 }

// IsNegative reports whether the mood is SAD or VERY_SAD.
func (m Mood) IsNegative() bool {
	return m == MoodSad || m == MoodVerySad
}

// AnxietyLevel is a self-reported anxiety level. The empty value means the
// entry carries no anxiety reading.
type AnxietyLevel string

const (
	AnxietyNone     AnxietyLevel = "NONE"
	AnxietyMild     AnxietyLevel = "MILD"
	AnxietyModerate AnxietyLevel = "MODERATE"
	AnxietySevere   AnxietyLevel = "SEVERE"
	AnxietyExtreme  AnxietyLevel = "EXTREME"
)

// Scale maps the level to 0 (NONE) .. 4 (EXTREME). The second result is
// false when no reading is present.
func (a AnxietyLevel) Scale() (int, bool) {
	switch a {
	case AnxietyNone:
		return 0, true
	case AnxietyMild:
		return 1, true
	case AnxietyModerate:
		return 2, true
	case AnxietySevere:
		return 3, true
	case AnxietyExtreme:
		return 4, true
	}
	return 0, false
}

// Valid reports whether a is a known level.
func (a AnxietyLevel) Valid() bool {
	_, ok := a.Scale()
	return ok
}

// IsSevere reports whether the level is SEVERE or EXTREME.
func (a AnxietyLevel) IsSevere() bool {
	return a == AnxietySevere || a == AnxietyExtreme
}

// MoodEntry is a single mood log. Entries are immutable once created.
type MoodEntry struct {
	ID       string       `json:"id"`
	UserID   string       `json:"user_id"`
	Mood     Mood         `json:"mood"`
	Anxiety  AnxietyLevel `json:"anxiety_level,omitempty"`
	Note     string       `json:"note,omitempty"`
	LoggedAt time.Time    `json:"logged_at"`
}
