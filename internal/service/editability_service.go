package service

import (
	"context"
	"time"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

const dateLayout = "2006-01-02"

// EditabilityPolicy decides which calendar dates are open for attendance
// mutation. The reference day is captured once when the policy is created
// and held for its lifetime, so an edit session keeps a stable window even
// while the wall clock moves; staleness is caught separately via CurrentDay.
//
// Dates are ISO strings and classified by lexical comparison, which is
// correct for the YYYY-MM-DD form and intentional.
type EditabilityPolicy struct {
	today string
	loc   *time.Location
	now   func() time.Time
}

// NewEditabilityPolicy captures the reference day from the given instant.
func NewEditabilityPolicy(reference time.Time) *EditabilityPolicy {
	return &EditabilityPolicy{
		today: reference.Format(dateLayout),
		loc:   reference.Location(),
		now:   time.Now,
	}
}

// Today returns the frozen reference day.
func (p *EditabilityPolicy) Today() string {
	return p.today
}

// CurrentDay returns the calendar day of the wall clock right now, which may
// differ from Today once a session crosses midnight.
func (p *EditabilityPolicy) CurrentDay() string {
	return p.now().In(p.loc).Format(dateLayout)
}

// Classify places a date relative to the reference day. Any string that is
// not the reference day sorts lexically to past or future; malformed input
// still yields a defined classification.
func (p *EditabilityPolicy) Classify(date string) models.DayClassification {
	switch {
	case date == p.today:
		return models.DayToday
	case date < p.today:
		return models.DayPast
	default:
		return models.DayFuture
	}
}

// IsToday reports whether the date is the reference day.
func (p *EditabilityPolicy) IsToday(date string) bool { return date == p.today }

// IsPast reports whether the date precedes the reference day.
func (p *EditabilityPolicy) IsPast(date string) bool { return date < p.today }

// IsFuture reports whether the date follows the reference day.
func (p *EditabilityPolicy) IsFuture(date string) bool { return date > p.today }

// IsEditable reports whether attendance for the date may be mutated. The
// only editable window is the reference day itself: past days are closed to
// prevent retroactive falsification, future days to prevent premature marks.
func (p *EditabilityPolicy) IsEditable(date string) bool { return p.IsToday(date) }

// EditableNow re-checks editability against the wall clock instead of the
// frozen reference. Submission-time validation uses this to catch sessions
// that crossed midnight after staging.
func (p *EditabilityPolicy) EditableNow(date string) bool {
	return date == p.CurrentDay()
}

// TimeRemaining computes the countdown for a date. For the reference day it
// is the time until local midnight; for a future date the time until that
// day starts, with hours left unnormalised (possibly over 24) so the caller
// can derive its own "Xd Yh Zm" display. Past dates have no countdown, which
// is a distinct state rather than a zero one.
func (p *EditabilityPolicy) TimeRemaining(date string) models.TimeRemaining {
	switch p.Classify(date) {
	case models.DayPast:
		return models.TimeRemaining{}
	case models.DayToday:
		now := p.now().In(p.loc)
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc).AddDate(0, 0, 1)
		return splitDuration(midnight.Sub(now))
	default:
		start, err := time.ParseInLocation(dateLayout, date, p.loc)
		if err != nil {
			return models.TimeRemaining{}
		}
		remaining := start.Sub(p.now().In(p.loc))
		if remaining < 0 {
			remaining = 0
		}
		return splitDuration(remaining)
	}
}

func splitDuration(d time.Duration) models.TimeRemaining {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	return models.TimeRemaining{
		Countdown: true,
		Hours:     total / 3600,
		Minutes:   (total % 3600) / 60,
		Seconds:   total % 60,
	}
}

// Countdown recomputes a date's remaining time every second and pushes it to
// the callback. It owns a ticker that leaks unless Stop is called, so every
// Start must be paired with Stop (or a cancelled context).
type Countdown struct {
	stop chan struct{}
	done chan struct{}
}

// StartCountdown begins a one-second tick for the date. The callback runs on
// the countdown goroutine.
func (p *EditabilityPolicy) StartCountdown(ctx context.Context, date string, fn func(models.TimeRemaining)) *Countdown {
	c := &Countdown{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				fn(p.TimeRemaining(date))
			}
		}
	}()
	return c
}

// Stop halts the countdown and waits for its goroutine to exit. Safe to call
// once.
func (c *Countdown) Stop() {
	close(c.stop)
	<-c.done
}
