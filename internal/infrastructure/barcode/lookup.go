package barcode

import (
	"context"
	"log/slog"

	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

type lookup struct {
	decoder *Decoder
	scraper *Scraper
	log     *slog.Logger
}

// NewLookup barcode lookup over the photo decoder and the catalogue scraper
func NewLookup(decoder *Decoder, scraper *Scraper, log *slog.Logger) repository.BarcodeLookup {
	return &lookup{decoder: decoder, scraper: scraper, log: log.With("component", "barcode")}
}

func (l *lookup) Decode(ctx context.Context, image []byte) (string, error) {
	code, err := l.decoder.Decode(ctx, image)
	if err != nil {
		return "", err
	}
	l.log.InfoContext(ctx, "barcode decoded", slog.String("code", code))
	return code, nil
}

func (l *lookup) ResolveNames(ctx context.Context, code string) ([]string, error) {
	names, err := l.scraper.ResolveNames(ctx, code)
	if err != nil {
		return nil, err
	}
	l.log.InfoContext(ctx, "barcode names parsed", slog.String("code", code), slog.Int("names", len(names)))
	return names, nil
}
