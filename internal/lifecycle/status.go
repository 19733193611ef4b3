package lifecycle

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
	StatusInactive     Status = "inactive"
)

const (
	// ExpiringSoonDays is the lookahead used by Classify and the dashboard's
	// short window.
	ExpiringSoonDays = 3
	ExpiringWeekDays = 7
)

var ErrUnknownStatus = errors.New("status must be one of active, expiring_soon, expired, inactive")

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusExpiringSoon, StatusExpired, StatusInactive:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// Clock supplies "now". Services hold one so tests can pin the date.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now() }

func Today(now time.Time) Date {
	return DateOf(now)
}

// NextBillDate is the end of the billing window that starts on from and lasts
// months calendar months. A non-positive duration leaves the date unchanged.
func NextBillDate(from Date, months int) Date {
	if months <= 0 {
		return from
	}
	return from.AddMonths(months)
}

// DaysUntil is positive when d is after today, negative when before.
func DaysUntil(d Date, now time.Time) int {
	return int(d.Sub(Today(now).Time) / (24 * time.Hour))
}

func IsExpired(nextBill Date, now time.Time) bool {
	return nextBill.Before(Today(now))
}

func IsExpiringWithin(nextBill Date, now time.Time, days int) bool {
	n := DaysUntil(nextBill, now)
	return n >= 0 && n <= days
}

// Classify buckets a member. Order matters: an inactive member is never
// reported expired or expiring.
func Classify(active bool, nextBill Date, now time.Time) Status {
	switch {
	case !active:
		return StatusInactive
	case IsExpired(nextBill, now):
		return StatusExpired
	case IsExpiringWithin(nextBill, now, ExpiringSoonDays):
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// ExpiringWindow returns the inclusive next-bill-date range [today, today+days].
func ExpiringWindow(now time.Time, days int) (from, to Date) {
	today := Today(now)
	return today, today.AddDays(days)
}

// MonthRange returns the first and last day of now's calendar month.
func MonthRange(now time.Time) (first, last Date) {
	y, m, _ := now.Date()
	first = NewDate(y, m, 1)
	return first, first.AddMonths(1).AddDays(-1)
}
