package models

import "time"

// AvailabilityDay is a doctor's set of offered time ranges for one calendar
// date. At most one day exists per (doctor, date), enforced by a unique
// index. Dates are day-granular and compared in UTC.
type AvailabilityDay struct {
	ID        string     `db:"id" json:"id"`
	DoctorID  string     `db:"doctor_id" json:"doctor_id"`
	Date      time.Time  `db:"date" json:"date"`
	Slots     []TimeSlot `db:"-" json:"time_slots"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// TimeSlot is one offered time range within an AvailabilityDay. Start and
// end are "HH:MM" wall-clock strings. A slot has no identity outside its
// parent day. Identical (start, end) ranges are unique within a day.
type TimeSlot struct {
	ID       string `db:"id" json:"id"`
	DayID    string `db:"day_id" json:"-"`
	Start    string `db:"start_time" json:"start_time"`
	End      string `db:"end_time" json:"end_time"`
	Booked   bool   `db:"booked" json:"booked"`
	Position int    `db:"position" json:"-"`
}
