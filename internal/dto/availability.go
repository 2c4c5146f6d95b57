package dto

import (
	"time"

	"github.com/medibook/medibook-api/internal/models"
)

// OfferSlotRequest is the payload for a doctor offering a new time slot.
// Start must precede end; degenerate ranges are rejected.
type OfferSlotRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

// AvailabilityDayView is the wire shape of one availability day.
type AvailabilityDayView struct {
	ID        string         `json:"id"`
	DoctorID  string         `json:"doctorId"`
	Date      string         `json:"date"`
	TimeSlots []TimeSlotView `json:"timeSlots"`
}

// TimeSlotView is the wire shape of one offered slot.
type TimeSlotView struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	IsBooked  bool   `json:"isBooked"`
}

// NewAvailabilityDayView converts a model day into its wire shape.
func NewAvailabilityDayView(day models.AvailabilityDay) AvailabilityDayView {
	view := AvailabilityDayView{
		ID:        day.ID,
		DoctorID:  day.DoctorID,
		Date:      day.Date.UTC().Format("2006-01-02"),
		TimeSlots: make([]TimeSlotView, 0, len(day.Slots)),
	}
	for _, slot := range day.Slots {
		view.TimeSlots = append(view.TimeSlots, TimeSlotView{
			StartTime: slot.Start,
			EndTime:   slot.End,
			IsBooked:  slot.Booked,
		})
	}
	return view
}

// NewAvailabilityListView converts a slice of days, never returning nil so
// that an empty availability serialises as [].
func NewAvailabilityListView(days []models.AvailabilityDay) []AvailabilityDayView {
	views := make([]AvailabilityDayView, 0, len(days))
	for _, day := range days {
		views = append(views, NewAvailabilityDayView(day))
	}
	return views
}

// ParseDay normalises a "2006-01-02" date string to midnight UTC.
func ParseDay(raw string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", raw, time.UTC)
}
