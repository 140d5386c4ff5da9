package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultRule every day at 09:00.
const DefaultRule = "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"

// Schedule fires a job on the occurrences of an RRULE in a time zone.
type Schedule struct {
	rule string
	loc  *time.Location
	now  func() time.Time
	log  *slog.Logger
}

// NewSchedule parses rule (RFC 5545 RRULE without the "RRULE:" prefix).
func NewSchedule(rule string, loc *time.Location, log *slog.Logger) (*Schedule, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		rule = DefaultRule
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Schedule{rule: rule, loc: loc, now: time.Now, log: log.With("component", "scheduler")}
	if _, err := s.Next(s.now()); err != nil {
		return nil, err
	}
	return s, nil
}

// Next first occurrence strictly after now.
func (s *Schedule) Next(now time.Time) (time.Time, error) {
	opts, err := rrule.StrToROption(s.rule)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule rule %q: %w", s.rule, err)
	}
	local := now.In(s.loc)
	opts.Dtstart = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)

	r, err := rrule.NewRRule(*opts)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule rule %q: %w", s.rule, err)
	}
	next := r.After(local, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("schedule rule %q has no occurrence after %s", s.rule, local.Format(time.RFC3339))
	}
	return next, nil
}

// Run calls job at every occurrence until ctx is done. Job errors are logged.
func (s *Schedule) Run(ctx context.Context, job func(context.Context) error) error {
	for {
		now := s.now()
		next, err := s.Next(now)
		if err != nil {
			return err
		}
		s.log.InfoContext(ctx, "next run scheduled", slog.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			if err := job(ctx); err != nil {
				s.log.ErrorContext(ctx, "scheduled job failed", slog.Any("error", err))
			}
		}
	}
}
