// Package slotwindow narrows free slots down to the ones worth notifying
// about.
package slotwindow

import (
	"fmt"
	"medicover-assist/internal/chrono"
	"medicover-assist/lib/scrapers/medicover"
	"medicover-assist/lib/textutil"
	"time"
)

const dateLayout = "2006-01-02"

const DefaultDays = 4

// Window is a half-open range of calendar dates [Start, End), both in
// YYYY-MM-DD form.
type Window struct {
	Start string
	End   string
}

// Next returns the window covering `days` calendar dates starting with
// the date of now in Europe/Warsaw. A non-positive `days` falls back to
// DefaultDays.
func Next(now time.Time, days int) Window {
	if days <= 0 {
		days = DefaultDays
	}
	today := chrono.Day(now, chrono.Warsaw())
	return Window{
		Start: today.Format(dateLayout),
		End:   today.AddDate(0, 0, days).Format(dateLayout),
	}
}

// Contains reports whether an appointmentDate as the portal formats it
// (YYYY-MM-DDTHH:MM:SS, local time) falls inside the window.
//
// The portal's format sorts lexically, so no parsing is needed.
func (w Window) Contains(appointmentDate string) bool {
	return w.Start <= appointmentDate && appointmentDate < w.End
}

// Select keeps the slots inside the window, in order.
// Slots without an appointmentDate are skipped.
func (w Window) Select(slots []medicover.Record) []medicover.Record {
	var out []medicover.Record
	for _, slot := range slots {
		date, err := slot.AppointmentDate()
		if err != nil {
			continue
		}
		if w.Contains(date) {
			out = append(out, slot)
		}
	}
	return out
}

// Describe formats a slot as "<appointmentDate> (<doctor>)" with the
// doctor's name transliterated to ASCII.
func Describe(slot medicover.Record) (string, error) {
	date, err := slot.AppointmentDate()
	if err != nil {
		return "", err
	}
	doctor, err := slot.DoctorName()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)", date, textutil.Transliterate(doctor)), nil
}

// DescribeAll is Describe over every slot.
func DescribeAll(slots []medicover.Record) ([]string, error) {
	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		line, err := Describe(slot)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
