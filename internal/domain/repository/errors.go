package repository

import "errors"

var (
	// ErrNotFound no record matches the id/owner pair.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate the owner already has a medicine with this name.
	ErrDuplicate = errors.New("duplicate medicine name")

	// ErrNotModified an edit left the message unchanged.
	ErrNotModified = errors.New("message is not modified")

	// ErrMessageGone the message to edit is missing, too old or its id is invalid.
	ErrMessageGone = errors.New("message can't be edited")

	// ErrNoBarcode no barcode could be read from the image.
	ErrNoBarcode = errors.New("barcode not recognized")
)
