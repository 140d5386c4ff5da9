package barcode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Telegram photos are JPEG
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// Decoder reads 1D product barcodes (EAN/UPC, Code 128) from photos.
// It is safe for concurrent use: readers keep scratch state, so every
// Decode call builds its own.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewDecoder creates a Decoder
func NewDecoder() *Decoder {
	return &Decoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *Decoder) readers() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewMultiFormatUPCEANReader(d.hints),
		oned.NewCode128Reader(),
	}
}

// Decode tries the original image first, then a contrast-stretched copy for
// dim or washed-out photos. Returns repository.ErrNoBarcode when neither pass
// finds a code.
func (d *Decoder) Decode(ctx context.Context, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	readers := d.readers()
	if code, ok := d.scan(readers, img); ok {
		return code, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if code, ok := d.scan(readers, stretchContrast(img)); ok {
		return code, nil
	}
	return "", repository.ErrNoBarcode
}

func (d *Decoder) scan(readers []gozxing.Reader, img image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	for _, r := range readers {
		result, err := r.Decode(bmp, d.hints)
		if err == nil && result.GetText() != "" {
			return result.GetText(), true
		}
		r.Reset()
	}
	return "", false
}

// stretchContrast converts img to grayscale and spreads its luminance range
// over 0..255. A flat image comes back as plain grayscale.
func stretchContrast(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)

	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			gray.SetGray(x, y, color.Gray{Y: v})
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi <= lo {
		return gray
	}

	span := int(hi) - int(lo)
	for i, v := range gray.Pix {
		gray.Pix[i] = uint8((int(v) - int(lo)) * 255 / span)
	}
	return gray
}
