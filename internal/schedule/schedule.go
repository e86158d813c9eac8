// Package schedule describes the bookable consultation slots offered to
// patients and checks them against existing appointments.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/careplanner/backend/pkg/model"
)

const (
	// BookingDays is how many days ahead, starting tomorrow, can be booked
	BookingDays = 3
	// DateLayout is the wire format of a bookable date
	DateLayout = "2006-01-02"
	slotLayout = "03:04 PM"

	DefaultDoctor = "Dr. Carter"
	DefaultReason = "General Consultation"
)

// Slots are the daily consultation start times
var Slots = []string{"09:00 AM", "10:30 AM", "01:00 PM", "03:15 PM"}

var (
	ErrUnknownSlot     = errors.New("unknown time slot")
	ErrDateOutOfRange  = errors.New("date is outside the booking window")
	ErrSlotUnavailable = errors.New("time slot is already booked")
)

// SlotAvailability reports whether one slot on a day is free
type SlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Day lists the slots of one bookable date
type Day struct {
	Date  string             `json:"date"`
	Slots []SlotAvailability `json:"slots"`
}

// BookableDates returns midnight of each bookable day in now's location
func BookableDates(now time.Time) []time.Time {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	dates := make([]time.Time, BookingDays)
	for i := range dates {
		dates[i] = today.AddDate(0, 0, i+1)
	}
	return dates
}

// SlotTime returns the start of slot on day, in day's location
func SlotTime(day time.Time, slot string) (time.Time, error) {
	t, err := time.Parse(slotLayout, slot)
	if err != nil || !isSlot(slot) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// Available reports whether no active appointment starts at slot on day.
// Cancelled appointments free their slot.
func Available(appointments []model.Appointment, day time.Time, slot string) bool {
	start, err := SlotTime(day, slot)
	if err != nil {
		return false
	}

	for _, a := range appointments {
		if a.Status == model.AppointmentStatusCancelled {
			continue
		}
		at := a.Date.In(start.Location())
		if at.Year() == start.Year() && at.YearDay() == start.YearDay() &&
			at.Hour() == start.Hour() && at.Minute() == start.Minute() {
			return false
		}
	}
	return true
}

// Availability lists every slot of day with its availability
func Availability(appointments []model.Appointment, day time.Time) Day {
	out := Day{Date: day.Format(DateLayout), Slots: make([]SlotAvailability, len(Slots))}
	for i, slot := range Slots {
		out.Slots[i] = SlotAvailability{Time: slot, Available: Available(appointments, day, slot)}
	}
	return out
}

// Week returns availability for every bookable date
func Week(appointments []model.Appointment, now time.Time) []Day {
	dates := BookableDates(now)
	days := make([]Day, len(dates))
	for i, d := range dates {
		days[i] = Availability(appointments, d)
	}
	return days
}

// Resolve validates a requested date and slot against the booking window and
// existing appointments, returning the appointment start time
func Resolve(appointments []model.Appointment, now time.Time, date, slot string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	inWindow := false
	for _, d := range BookableDates(now) {
		if d.Equal(day) {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return time.Time{}, ErrDateOutOfRange
	}

	start, err := SlotTime(day, slot)
	if err != nil {
		return time.Time{}, err
	}
	if !Available(appointments, day, slot) {
		return time.Time{}, ErrSlotUnavailable
	}
	return start, nil
}

func isSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}
