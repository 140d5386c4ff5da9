package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// maxCallbackData Bot API limit on callback_data, in bytes.
const maxCallbackData = 64

var errBadCallback = errors.New("malformed callback data")

var fieldCodes = map[entity.Field]string{
	entity.FieldName:     "n",
	entity.FieldQuantity: "q",
	entity.FieldNotes:    "o",
	entity.FieldExpDate:  "e",
}

var moveCodes = map[entity.CalendarMove]string{
	entity.PrevYear:  "py",
	entity.PrevMonth: "pm",
	entity.NextMonth: "nm",
	entity.NextYear:  "ny",
}

// EncodeAction packs an action into callback data.
func EncodeAction(a entity.Action) (string, error) {
	var data string
	switch a := a.(type) {
	case entity.ShowMenu:
		data = "menu"
	case entity.ShowList:
		data = "list:" + strconv.Itoa(a.Page)
	case entity.StartAdd:
		data = "add"
	case entity.ViewMedicine:
		data = "view:" + a.ID
	case entity.EditField:
		code, ok := fieldCodes[a.Field]
		if !ok {
			return "", fmt.Errorf("unknown field %q", a.Field)
		}
		data = "edit:" + a.ID + ":" + code
	case entity.AskDelete:
		data = "del:" + a.ID
	case entity.ConfirmDelete:
		data = "delok:" + a.ID
	case entity.HideInline:
		data = "hide"
	case entity.Cancel:
		data = "cancel"
	case entity.BarcodeUpdate:
		data = "bcu:" + a.ID
	case entity.BarcodeOther:
		data = "bco"
	case entity.CalendarNav:
		code, ok := moveCodes[a.Move]
		if !ok {
			return "", fmt.Errorf("unknown calendar move %d", a.Move)
		}
		data = fmt.Sprintf("cal:%s:%d:%d", code, a.Year, a.Month)
	case entity.CalendarDay:
		data = fmt.Sprintf("day:%d:%d:%d", a.Year, a.Month, a.Day)
	case entity.Ignore:
		data = "ign"
	default:
		return "", fmt.Errorf("unknown action %T", a)
	}

	if len(data) > maxCallbackData {
		return "", fmt.Errorf("callback data %q exceeds %d bytes", data, maxCallbackData)
	}
	return data, nil
}

// DecodeAction parses callback data produced by EncodeAction.
func DecodeAction(data string) (entity.Action, error) {
	parts := strings.Split(data, ":")
	args := parts[1:]

	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %q", errBadCallback, data)
		}
		for _, a := range args {
			if a == "" {
				return fmt.Errorf("%w: %q", errBadCallback, data)
			}
		}
		return nil
	}

	switch parts[0] {
	case "menu":
		return entity.ShowMenu{}, need(0)
	case "add":
		return entity.StartAdd{}, need(0)
	case "hide":
		return entity.HideInline{}, need(0)
	case "cancel":
		return entity.Cancel{}, need(0)
	case "bco":
		return entity.BarcodeOther{}, need(0)
	case "ign":
		return entity.Ignore{}, need(0)

	case "list":
		if err := need(1); err != nil {
			return nil, err
		}
		page, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errBadCallback, data)
		}
		return entity.ShowList{Page: page}, nil

	case "view", "del", "delok", "bcu":
		if err := need(1); err != nil {
			return nil, err
		}
		switch parts[0] {
		case "view":
			return entity.ViewMedicine{ID: args[0]}, nil
		case "del":
			return entity.AskDelete{ID: args[0]}, nil
		case "delok":
			return entity.ConfirmDelete{ID: args[0]}, nil
		default:
			return entity.BarcodeUpdate{ID: args[0]}, nil
		}

	case "edit":
		if err := need(2); err != nil {
			return nil, err
		}
		for field, code := range fieldCodes {
			if code == args[1] {
				return entity.EditField{ID: args[0], Field: field}, nil
			}
		}
		return nil, fmt.Errorf("%w: unknown field in %q", errBadCallback, data)

	case "cal":
		if err := need(3); err != nil {
			return nil, err
		}
		nums, err := atoiAll(args[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errBadCallback, data)
		}
		for move, code := range moveCodes {
			if code == args[0] {
				return entity.CalendarNav{Move: move, Year: nums[0], Month: nums[1]}, nil
			}
		}
		return nil, fmt.Errorf("%w: unknown move in %q", errBadCallback, data)

	case "day":
		if err := need(3); err != nil {
			return nil, err
		}
		nums, err := atoiAll(args)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errBadCallback, data)
		}
		return entity.CalendarDay{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
	}

	return nil, fmt.Errorf("%w: %q", errBadCallback, data)
}

func atoiAll(ss []string) ([]int, error) {
	out := make([]int, 0, len(ss))
	for _, s := range ss {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
