package export

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/contour/pkg/toolpath"
	"golang.org/x/image/tiff"
)

// ErrTypeEmpty is raised when there is nothing to export.
const ErrTypeEmpty = "empty-export"

// HeightImage maps tp to a 16-bit grayscale image, one pixel per sampled
// position. The lowest height maps to 0 and the highest to 65535; a flat
// path is all black. Row 0 of the image is the highest Y so the image
// reads like a plan view.
func HeightImage(tp *toolpath.Toolpath) (*image.Gray16, error) {
	if tp.Len() == 0 {
		return nil, errors.New("toolpath has no positions").
			WithType(ErrTypeEmpty)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, z := range tp.Z {
		lo, hi = math.Min(lo, z), math.Max(hi, z)
	}
	scale := 0.0
	if hi > lo {
		scale = math.MaxUint16 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, tp.Cols, tp.Rows))
	for r := 0; r < tp.Rows; r++ {
		for c := 0; c < tp.Cols; c++ {
			v := math.Round((tp.At(c, r) - lo) * scale)
			img.SetGray16(c, tp.Rows-1-r, color.Gray16{Y: uint16(v)})
		}
	}
	return img, nil
}

// WriteHeightTIFF writes the height image of tp as a deflate-compressed
// TIFF.
func WriteHeightTIFF(w io.Writer, tp *toolpath.Toolpath) error {
	img, err := HeightImage(tp)
	if err != nil {
		return err
	}
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return errors.New("encoding tiff failed").
			WithTag("cols", tp.Cols).
			WithTag("rows", tp.Rows).
			Wrap(err)
	}
	return nil
}
