package barcode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecoder_EAN13(t *testing.T) {
	t.Parallel()
	const code = "4006381333931"

	matrix, err := oned.NewEAN13Writer().Encode(code, gozxing.BarcodeFormat_EAN_13, 400, 120, nil)
	require.NoError(t, err)

	got, err := NewDecoder().Decode(context.Background(), encodePNG(t, matrix))
	require.NoError(t, err)
	assert.Equal(t, code, got)
}

func TestDecoder_Code128(t *testing.T) {
	t.Parallel()
	const code = "MED-2026-001"

	matrix, err := oned.NewCode128Writer().Encode(code, gozxing.BarcodeFormat_CODE_128, 400, 120, nil)
	require.NoError(t, err)

	got, err := NewDecoder().Decode(context.Background(), encodePNG(t, matrix))
	require.NoError(t, err)
	assert.Equal(t, code, got)
}

func TestDecoder_NoBarcode(t *testing.T) {
	t.Parallel()
	blank := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			blank.Set(x, y, color.White)
		}
	}

	_, err := NewDecoder().Decode(context.Background(), encodePNG(t, blank))
	assert.ErrorIs(t, err, repository.ErrNoBarcode)
}

func TestDecoder_NotAnImage(t *testing.T) {
	t.Parallel()
	_, err := NewDecoder().Decode(context.Background(), []byte("definitely not a picture"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNoBarcode)
}

func TestDecoder_ConcurrentUse(t *testing.T) {
	t.Parallel()
	codes := []string{"4006381333931", "4601234567893"}
	images := make([][]byte, len(codes))
	for i, code := range codes {
		matrix, err := oned.NewEAN13Writer().Encode(code, gozxing.BarcodeFormat_EAN_13, 400, 120, nil)
		require.NoError(t, err)
		images[i] = encodePNG(t, matrix)
	}

	d := NewDecoder()
	const workers, rounds = 8, 20

	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				n := (w + i) % len(codes)
				got, err := d.Decode(context.Background(), images[n])
				if err == nil && got != codes[n] {
					err = fmt.Errorf("decoded %q, want %q", got, codes[n])
				}
				if err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestStretchContrast(t *testing.T) {
	t.Parallel()
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	img.Pix = []uint8{100, 110, 120, 140}

	got := stretchContrast(img)
	assert.Equal(t, []uint8{0, 63, 127, 255}, got.Pix)

	flat := image.NewGray(image.Rect(0, 0, 2, 1))
	flat.Pix = []uint8{90, 90}
	assert.Equal(t, []uint8{90, 90}, stretchContrast(flat).Pix)
}
