package repository

import "context"

// BarcodeLookup resolves product names from barcode photos
type BarcodeLookup interface {
	// Decode reads a barcode from image bytes; ErrNoBarcode when none found
	Decode(ctx context.Context, image []byte) (string, error)

	// ResolveNames candidate product names for a barcode, sorted and unique.
	// An empty list means the code is unknown.
	ResolveNames(ctx context.Context, code string) ([]string, error)
}
