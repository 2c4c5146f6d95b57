package models

import "time"

// AppointmentStatus enumerates appointment lifecycle states. Booking creates
// appointments directly as confirmed; pending and cancelled exist for wire
// compatibility but no current flow produces them.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a confirmed reservation of one time slot by one patient.
// The slot's range is copied onto the record at booking time.
type Appointment struct {
	ID        string            `db:"id" json:"id"`
	PatientID string            `db:"patient_id" json:"patient_id"`
	DoctorID  string            `db:"doctor_id" json:"doctor_id"`
	Date      time.Time         `db:"date" json:"date"`
	Start     string            `db:"start_time" json:"start_time"`
	End       string            `db:"end_time" json:"end_time"`
	Status    AppointmentStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
