package domain

import (
	"time"
)

// RiskLevel summarizes a patient's risk from 0 (none) to 3 (critical).
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

// Clamp bounds l to [RiskNone, RiskCritical].
func (l RiskLevel) Clamp() RiskLevel {
	if l < RiskNone {
		return RiskNone
	}
	if l > RiskCritical {
		return RiskCritical
	}
	return l
}

// Valid reports whether l is within [0,3].
func (l RiskLevel) Valid() bool {
	return l >= RiskNone && l <= RiskCritical
}

// Label returns the display label used in listings.
func (l RiskLevel) Label() string {
	switch l {
	case RiskNone:
		return "NONE"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	default:
		return "CRITICAL"
	}
}

// MonitoringRecord is the persisted risk assessment for a patient.
type MonitoringRecord struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	TherapistID string    `json:"therapist_id,omitempty"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Notes       string    `json:"notes"`
	LastCheckIn time.Time `json:"last_check_in"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasTherapist returns true if a therapist is assigned to the record.
func (r *MonitoringRecord) HasTherapist() bool {
	return r.TherapistID != ""
}

// HighRiskPatient is a monitoring record joined with the patient's account.
type HighRiskPatient struct {
	MonitoringRecord
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	RiskLabel string `json:"risk_label"`
}

// Transition classifies a recomputed risk level against the stored one.
type Transition string

const (
	TransitionUnchanged   Transition = "UNCHANGED"
	TransitionEscalated   Transition = "ESCALATED"
	TransitionDeEscalated Transition = "DE-ESCALATED"
)

// Classify compares a new level with the previous one.
func Classify(previous, next RiskLevel) Transition {
	switch {
	case next > previous:
		return TransitionEscalated
	case next < previous:
		return TransitionDeEscalated
	default:
		return TransitionUnchanged
	}
}
