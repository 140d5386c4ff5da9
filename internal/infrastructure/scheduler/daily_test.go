package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedule_Next(t *testing.T) {
	t.Parallel()
	msk := time.FixedZone("MSK", 3*60*60)
	s, err := NewSchedule("", msk, discard())
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before today's run", time.Date(2026, 3, 10, 8, 0, 0, 0, msk), time.Date(2026, 3, 10, 9, 0, 0, 0, msk)},
		{"after today's run", time.Date(2026, 3, 10, 9, 30, 0, 0, msk), time.Date(2026, 3, 11, 9, 0, 0, 0, msk)},
		{"exactly at run time", time.Date(2026, 3, 10, 9, 0, 0, 0, msk), time.Date(2026, 3, 11, 9, 0, 0, 0, msk)},
		{"utc input", time.Date(2026, 3, 10, 5, 59, 0, 0, time.UTC), time.Date(2026, 3, 10, 9, 0, 0, 0, msk)},
		{"month end", time.Date(2026, 3, 31, 23, 0, 0, 0, msk), time.Date(2026, 4, 1, 9, 0, 0, 0, msk)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Next(tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestSchedule_CustomRule(t *testing.T) {
	t.Parallel()
	s, err := NewSchedule("RRULE:FREQ=WEEKLY;BYDAY=MO;BYHOUR=8;BYMINUTE=30;BYSECOND=0", time.UTC, discard())
	require.NoError(t, err)

	// 2026-03-10 is a Tuesday.
	got, err := s.Next(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 16, 8, 30, 0, 0, time.UTC), got)
}

func TestNewSchedule_InvalidRule(t *testing.T) {
	t.Parallel()
	_, err := NewSchedule("FREQ=SOMETIMES", time.UTC, discard())
	assert.Error(t, err)
}

func TestSchedule_Run(t *testing.T) {
	t.Parallel()
	s, err := NewSchedule("", time.UTC, discard())
	require.NoError(t, err)
	s.now = func() time.Time {
		return time.Date(2026, 3, 10, 8, 59, 59, 990_000_000, time.UTC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context) error {
			runs++
			if runs == 2 {
				cancel()
			}
			return errors.New("job errors are logged, not fatal")
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, 2, runs)
}
