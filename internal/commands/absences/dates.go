package absences

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format members type dates in
const DateLayout = "2006-01-02"

var (
	ErrBadDate  = errors.New("date invalide, format attendu AAAA-MM-JJ")
	ErrEndFirst = errors.New("la date de fin précède la date de début")
)

// parseRange parses the first and last day of an absence. The returned end
// is exclusive: midnight after the last day.
func parseRange(first, last string, loc *time.Location) (start, end time.Time, err error) {
	start, err = time.ParseInLocation(DateLayout, strings.TrimSpace(first), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w : %q", ErrBadDate, first)
	}
	lastDay, err := time.ParseInLocation(DateLayout, strings.TrimSpace(last), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w : %q", ErrBadDate, last)
	}
	if lastDay.Before(start) {
		return time.Time{}, time.Time{}, ErrEndFirst
	}
	return start, lastDay.AddDate(0, 0, 1), nil
}

// days counts the calendar days between start and an exclusive end
func days(start, end time.Time) int {
	n := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func announce(userID string, start, end time.Time, reason string) string {
	lastDay := end.AddDate(0, 0, -1)
	return fmt.Sprintf("**Absence de :** <@%s>\n**Durée :** %d jour(s) (%s - %s)\n**Raison :** %s",
		userID, days(start, end), start.Format(DateLayout), lastDay.Format(DateLayout), reason)
}
