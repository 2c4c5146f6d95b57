package dto

import "github.com/medibook/medibook-api/internal/models"

// TimeRange is the requested slot boundary, matched against offered slots by
// exact (start, end) equality.
type TimeRange struct {
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

// BookingRequest is the payload for booking an appointment.
type BookingRequest struct {
	DoctorID string    `json:"doctorId" validate:"required"`
	Date     string    `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot TimeRange `json:"timeSlot" validate:"required"`
}

// BookingResponse wraps the created appointment.
type BookingResponse struct {
	Message     string              `json:"message"`
	Appointment *models.Appointment `json:"appointment"`
}
