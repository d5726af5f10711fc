package domain

import "time"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentNoShow    AppointmentStatus = "NO_SHOW"
)

// Appointment is a therapy session between a patient and a therapist.
type Appointment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patient_id"`
	TherapistID string            `json:"therapist_id"`
	Status      AppointmentStatus `json:"status"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
}

// ExerciseCompletion records a self-care exercise finished by a user.
type ExerciseCompletion struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ExerciseID  string    `json:"exercise_id"`
	CompletedAt time.Time `json:"completed_at"`
}
