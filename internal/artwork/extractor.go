package artwork

import (
	"context"
	"crewboard/internal/models"
	"crewboard/internal/structures"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
)

const defaultMaxBytes = 5 << 20

var ErrDisabled = errors.New("artwork color extraction disabled")

type ExtractorInterface interface {
	DominantColor(ctx context.Context, url string) (*models.RGB, error)
}

type Extractor struct {
	enabled  bool
	maxBytes int64
	http     *http.Client
}

func (e *Extractor) DominantColor(ctx context.Context, url string) (*models.RGB, error) {
	if !e.enabled {
		return nil, ErrDisabled
	}
	if url == "" {
		return nil, errors.New("empty artwork url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork %s: status %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("artwork %s: %w", url, err)
	}
	return Dominant(img)
}

// Dominant returns the dominant color of img. Images without a single
// opaque pixel have none.
func Dominant(img image.Image) (*models.RGB, error) {
	if img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	if !hasOpaquePixel(img) {
		return nil, errors.New("image has no opaque pixels")
	}
	c := dominantcolor.Find(img)
	return &models.RGB{R: c.R, G: c.G, B: c.B}, nil
}

func hasOpaquePixel(img image.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a >= 0x8000 {
				return true
			}
		}
	}
	return false
}

// Hex renders c as #rrggbb.
func Hex(c *models.RGB) string {
	if c == nil {
		return ""
	}
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

func NewExtractor(conf *structures.Config) ExtractorInterface {
	timeout := conf.Artwork.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := conf.Artwork.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Extractor{
		enabled:  conf.Artwork.Enabled,
		maxBytes: maxBytes,
		http:     &http.Client{Timeout: timeout},
	}
}
