package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

func TestCalendarKeyboard_Layout(t *testing.T) {
	t.Parallel()
	// March 2026 starts on a Sunday.
	kb := CalendarKeyboard(2026, 3)

	require.GreaterOrEqual(t, len(kb), 4)
	assert.Len(t, kb[0], 5)
	assert.Equal(t, "Март 2026", kb[0][2].Text)
	assert.Equal(t, entity.CalendarNav{Move: entity.PrevYear, Year: 2026, Month: 3}, kb[0][0].Action)
	assert.Equal(t, entity.CalendarNav{Move: entity.NextYear, Year: 2026, Month: 3}, kb[0][4].Action)
	assert.Equal(t, "Пн", kb[1][0].Text)

	firstWeek := kb[2]
	require.Len(t, firstWeek, 7)
	for i := 0; i < 6; i++ {
		assert.Equal(t, entity.Ignore{}, firstWeek[i].Action)
	}
	assert.Equal(t, entity.CalendarDay{Year: 2026, Month: 3, Day: 1}, firstWeek[6].Action)

	for _, row := range kb[2 : len(kb)-1] {
		assert.Len(t, row, 7)
	}
	assert.Equal(t, entity.Cancel{}, kb[len(kb)-1][0].Action)

	_, ok := findButton(kb, entity.CalendarDay{Year: 2026, Month: 3, Day: 31})
	assert.True(t, ok)
	_, ok = findButton(kb, entity.CalendarDay{Year: 2026, Month: 3, Day: 32})
	assert.False(t, ok)
}

func TestCalendarKeyboard_LeapFebruary(t *testing.T) {
	t.Parallel()
	_, ok := findButton(CalendarKeyboard(2028, 2), entity.CalendarDay{Year: 2028, Month: 2, Day: 29})
	assert.True(t, ok)
	_, ok = findButton(CalendarKeyboard(2027, 2), entity.CalendarDay{Year: 2027, Month: 2, Day: 29})
	assert.False(t, ok)
}

func TestNavigateCalendar(t *testing.T) {
	t.Parallel()
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		nav       entity.CalendarNav
		wantYear  int
		wantMonth int
		wantOK    bool
	}{
		{"next month", entity.CalendarNav{Move: entity.NextMonth, Year: 2026, Month: 3}, 2026, 4, true},
		{"next month wraps year", entity.CalendarNav{Move: entity.NextMonth, Year: 2026, Month: 12}, 2027, 1, true},
		{"prev month wraps year", entity.CalendarNav{Move: entity.PrevMonth, Year: 2026, Month: 1}, 2025, 12, true},
		{"prev year", entity.CalendarNav{Move: entity.PrevYear, Year: 2026, Month: 3}, 2025, 3, true},
		{"last year ahead", entity.CalendarNav{Move: entity.NextYear, Year: 2035, Month: 3}, 2036, 3, true},
		{"too far ahead", entity.CalendarNav{Move: entity.NextYear, Year: 2036, Month: 3}, 2036, 3, false},
		{"too far back", entity.CalendarNav{Move: entity.PrevMonth, Year: 2021, Month: 1}, 2021, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, month, ok := NavigateCalendar(tt.nav, today)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantMonth, month)
		})
	}
}

func TestSelectedDate(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+9", 9*60*60)

	date, ok := SelectedDate(entity.CalendarDay{Year: 2026, Month: 3, Day: 15}, loc)
	require.True(t, ok)
	assert.Equal(t, "2026-03-15", entity.FormatDate(date))
	assert.Equal(t, loc, date.Location())

	_, ok = SelectedDate(entity.CalendarDay{Year: 2026, Month: 2, Day: 30}, loc)
	assert.False(t, ok)
	_, ok = SelectedDate(entity.CalendarDay{Year: 2026, Month: 13, Day: 1}, loc)
	assert.False(t, ok)
	_, ok = SelectedDate(entity.CalendarDay{Year: 2026, Month: 1, Day: 0}, loc)
	assert.False(t, ok)
}

func TestMonthTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Январь 2027", MonthTitle(2027, 1))
	assert.Equal(t, "Декабрь 2026", MonthTitle(2026, 12))
	assert.Equal(t, "2026", MonthTitle(2026, 0))
}
