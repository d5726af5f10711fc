// Package risk evaluates a patient's risk level from mood and engagement
// signals. Both the on-demand report and the daily monitoring pass read the
// same rule table; each rule declares which of them it applies to.
package risk

import (
	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

// Scope selects the evaluation path a rule participates in.
type Scope uint8

const (
	// ScopeReport is the on-demand report over a trailing window.
	ScopeReport Scope = 1 << iota
	// ScopeDaily is the scheduled monitoring pass.
	ScopeDaily
)

// Rule factor labels. They are surfaced to therapists verbatim.
const (
	FactorLowMood           = "Consistently low mood"
	FactorHighAnxiety       = "High anxiety levels"
	FactorInfrequentLogging = "Infrequent mood logging"
	FactorNoSessions        = "No therapy sessions attended"
	FactorNoExercises       = "No self-care exercises completed"
	FactorNoRecentLog       = "No recent mood log"
	FactorInactive          = "No activity for 3+ days"
	FactorNegativePattern   = "Consistently negative mood patterns"
	FactorSevereAnxiety     = "Multiple severe anxiety episodes"
)

const (
	lowMoodThreshold       = 2.5
	highAnxietyThreshold   = 2.5
	minMoodEntries         = 7
	sessionWindowDays      = 30
	patternMinEntries      = 5
	patternMinNegative     = 4
	severeAnxietyEpisodes  = 3
	recommendMoodBelow     = 3.0
	recommendAnxietyAbove  = 2.0
	recommendExercisesLess = 5
	recommendEntriesLess   = 14
)

// Rule contributes Weight to the additive score and lifts the final level to
// at least Floor when it fires.
type Rule struct {
	Factor  string
	Scope   Scope
	Weight  float64
	Floor   domain.RiskLevel
	Applies func(Signals) bool
}

// Rules is the rule table, in the order factors are reported.
var Rules = []Rule{
	{
		Factor: FactorLowMood, Scope: ScopeReport, Weight: 1,
		Applies: func(s Signals) bool { return s.AvgMood < lowMoodThreshold },
	},
	{
		Factor: FactorHighAnxiety, Scope: ScopeReport, Weight: 1,
		Applies: func(s Signals) bool { return s.AvgAnxiety > highAnxietyThreshold },
	},
	{
		Factor: FactorInfrequentLogging, Scope: ScopeReport, Weight: 0.5,
		Applies: func(s Signals) bool { return s.MoodEntries < minMoodEntries },
	},
	{
		Factor: FactorNoSessions, Scope: ScopeReport, Weight: 1,
		Applies: func(s Signals) bool {
			return s.CompletedAppointments == 0 && s.WindowDays >= sessionWindowDays
		},
	},
	{
		Factor: FactorNoExercises, Scope: ScopeReport, Weight: 0.5,
		Applies: func(s Signals) bool { return s.CompletedExercises == 0 },
	},
	{
		Factor: FactorNoRecentLog, Scope: ScopeDaily, Floor: domain.RiskMedium,
		Applies: func(s Signals) bool {
			return s.Recent != nil && s.Recent.LogsLastDay == 0 && s.Recent.LogsLast3Days > 0
		},
	},
	{
		Factor: FactorInactive, Scope: ScopeDaily, Floor: domain.RiskHigh,
		Applies: func(s Signals) bool {
			return s.Recent != nil && s.Recent.LogsLastDay == 0 && s.Recent.LogsLast3Days == 0
		},
	},
	{
		Factor: FactorNegativePattern, Scope: ScopeReport | ScopeDaily, Floor: domain.RiskHigh,
		Applies: func(s Signals) bool {
			if s.Recent == nil || len(s.Recent.LastWeek) < patternMinEntries {
				return false
			}
			return countEntries(s.Recent.LastWeek, func(e domain.MoodEntry) bool {
				return e.Mood.IsNegative()
			}) >= patternMinNegative
		},
	},
	{
		Factor: FactorSevereAnxiety, Scope: ScopeReport | ScopeDaily, Floor: domain.RiskCritical,
		Applies: func(s Signals) bool {
			if s.Recent == nil {
				return false
			}
			return countEntries(s.Recent.LastWeek, func(e domain.MoodEntry) bool {
				return e.Anxiety.IsSevere()
			}) >= severeAnxietyEpisodes
		},
	},
}

func countEntries(entries []domain.MoodEntry, match func(domain.MoodEntry) bool) int {
	n := 0
	for _, e := range entries {
		if match(e) {
			n++
		}
	}
	return n
}

type recommendation struct {
	text    string
	applies func(Signals) bool
}

var recommendations = []recommendation{
	{
		text:    "Consider increasing therapy session frequency",
		applies: func(s Signals) bool { return s.AvgMood < recommendMoodBelow },
	},
	{
		text:    "Recommend anxiety management exercises",
		applies: func(s Signals) bool { return s.AvgAnxiety > recommendAnxietyAbove },
	},
	{
		text:    "Encourage daily mindfulness practice",
		applies: func(s Signals) bool { return s.CompletedExercises < recommendExercisesLess },
	},
	{
		text: "Promote regular mood tracking",
		applies: func(s Signals) bool {
			return s.MoodEntries < recommendEntriesLess && s.WindowDays >= sessionWindowDays
		},
	},
}
