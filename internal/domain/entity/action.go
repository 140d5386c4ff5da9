package entity

// Action a user-initiated button action. The set is closed: only the types in
// this file implement it.
type Action interface {
	action()
}

// ShowMenu shows the main menu.
type ShowMenu struct{}

// ShowList shows a page of the user's medicines.
type ShowList struct{ Page int }

// StartAdd starts the add-medicine flow.
type StartAdd struct{}

// ViewMedicine shows a medicine's details.
type ViewMedicine struct{ ID string }

// EditField starts editing one field of a medicine.
type EditField struct {
	ID    string
	Field Field
}

// AskDelete asks for delete confirmation.
type AskDelete struct{ ID string }

// ConfirmDelete deletes a medicine.
type ConfirmDelete struct{ ID string }

// HideInline blanks an inline result message.
type HideInline struct{}

// Cancel aborts the active flow.
type Cancel struct{}

// BarcodeUpdate opens the existing medicine found by barcode.
type BarcodeUpdate struct{ ID string }

// BarcodeOther keeps asking for a different name after a barcode match.
type BarcodeOther struct{}

// CalendarMove calendar navigation direction
type CalendarMove int

const (
	PrevYear CalendarMove = iota
	PrevMonth
	NextMonth
	NextYear
)

// CalendarNav moves the calendar away from the displayed Year/Month.
type CalendarNav struct {
	Move  CalendarMove
	Year  int
	Month int
}

// CalendarDay selects a date on the calendar.
type CalendarDay struct {
	Year  int
	Month int
	Day   int
}

// Ignore inert button (calendar header, page indicator).
type Ignore struct{}

func (ShowMenu) action()      {}
func (ShowList) action()      {}
func (StartAdd) action()      {}
func (ViewMedicine) action()  {}
func (EditField) action()     {}
func (AskDelete) action()     {}
func (ConfirmDelete) action() {}
func (HideInline) action()    {}
func (Cancel) action()        {}
func (BarcodeUpdate) action() {}
func (BarcodeOther) action()  {}
func (CalendarNav) action()   {}
func (CalendarDay) action()   {}
func (Ignore) action()        {}
