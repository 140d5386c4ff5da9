package usecase

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// Calendar navigation window relative to the current year.
const (
	calendarYearsBack  = 5
	calendarYearsAhead = 10
)

var monthNames = [...]string{
	"", "Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var weekdayNames = [...]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// MonthTitle e.g. "Март 2026".
func MonthTitle(year, month int) string {
	if month < 1 || month > 12 {
		return strconv.Itoa(year)
	}
	return fmt.Sprintf("%s %d", monthNames[month], year)
}

// CalendarKeyboard month grid for year/month, Monday first.
func CalendarKeyboard(year, month int) entity.Keyboard {
	ignore := entity.Ignore{}
	nav := func(text string, move entity.CalendarMove) entity.Button {
		return entity.Btn(text, entity.CalendarNav{Move: move, Year: year, Month: month})
	}

	kb := entity.Keyboard{
		entity.Row(
			nav("<<", entity.PrevYear),
			nav("<", entity.PrevMonth),
			entity.Btn(MonthTitle(year, month), ignore),
			nav(">", entity.NextMonth),
			nav(">>", entity.NextYear),
		),
	}

	header := make([]entity.Button, 0, len(weekdayNames))
	for _, d := range weekdayNames {
		header = append(header, entity.Btn(d, ignore))
	}
	kb = append(kb, header)

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lead := (int(first.Weekday()) + 6) % 7
	days := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()

	week := make([]entity.Button, 0, 7)
	for i := 0; i < lead; i++ {
		week = append(week, entity.Btn(" ", ignore))
	}
	for day := 1; day <= days; day++ {
		week = append(week, entity.Btn(strconv.Itoa(day), entity.CalendarDay{Year: year, Month: month, Day: day}))
		if len(week) == 7 {
			kb = append(kb, week)
			week = make([]entity.Button, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, entity.Btn(" ", ignore))
		}
		kb = append(kb, week)
	}

	return append(kb, entity.Row(entity.Btn("❌ Отмена ввода даты", entity.Cancel{})))
}

// NavigateCalendar applies a navigation press. ok is false when the target
// month falls outside the allowed window around today.
func NavigateCalendar(nav entity.CalendarNav, today time.Time) (year, month int, ok bool) {
	year, month = nav.Year, nav.Month
	switch nav.Move {
	case entity.PrevYear:
		year--
	case entity.NextYear:
		year++
	case entity.PrevMonth:
		month--
		if month < 1 {
			month, year = 12, year-1
		}
	case entity.NextMonth:
		month++
		if month > 12 {
			month, year = 1, year+1
		}
	}

	if year < today.Year()-calendarYearsBack || year > today.Year()+calendarYearsAhead {
		return nav.Year, nav.Month, false
	}
	return year, month, true
}

// SelectedDate the date a day press denotes, built in loc with no shift.
// ok is false for impossible dates.
func SelectedDate(day entity.CalendarDay, loc *time.Location) (time.Time, bool) {
	if day.Month < 1 || day.Month > 12 || day.Day < 1 {
		return time.Time{}, false
	}
	t := time.Date(day.Year, time.Month(day.Month), day.Day, 0, 0, 0, 0, loc)
	if t.Day() != day.Day {
		return time.Time{}, false
	}
	return t, true
}
