package domain

import "time"

// Period is the closed time range a report covers.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MoodTrends aggregates mood logs over the report period.
type MoodTrends struct {
	AverageMood  float64 `json:"averageMood"`
	MoodEntries  int     `json:"moodEntries"`
	AnxietyLevel float64 `json:"anxietyLevel"`
}

// ActivityMetrics aggregates engagement over the report period.
type ActivityMetrics struct {
	AppointmentsAttended int `json:"appointmentsAttended"`
	ExercisesCompleted   int `json:"exercisesCompleted"`
	TotalEngagement      int `json:"totalEngagement"`
}

// RiskAssessment is the evaluated risk part of a report.
type RiskAssessment struct {
	CurrentRiskLevel RiskLevel `json:"currentRiskLevel"`
	RiskFactors      []string  `json:"riskFactors"`
	Recommendations  []string  `json:"recommendations"`
}

// Report is a derived monitoring report for one patient. It is never persisted.
type Report struct {
	PatientID       string          `json:"patientId"`
	Days            int             `json:"days"`
	Period          Period          `json:"period"`
	MoodTrends      MoodTrends      `json:"moodTrends"`
	ActivityMetrics ActivityMetrics `json:"activityMetrics"`
	RiskAssessment  RiskAssessment  `json:"riskAssessment"`
	Summary         string          `json:"summary"`
}
