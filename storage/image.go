package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/rpupo63/showcase-backend/errs"
)

// CompressImage scales f down to fit maxWidth x maxHeight, keeping the aspect
// ratio, and re-encodes it. quality is in (0, 1] and applies to JPEG output.
// Images already within bounds are only re-encoded. A bound <= 0 leaves that
// axis unlimited. WebP input comes back as JPEG since there is no WebP encoder.
func CompressImage(f File, maxWidth, maxHeight int, quality float64) (File, error) {
	data, err := f.ReadAll()
	if err != nil {
		return File{}, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return File{}, errs.NewValidationError("file", fmt.Sprintf("cannot decode image: %v", err))
	}

	bounds := img.Bounds()
	if maxWidth <= 0 {
		maxWidth = bounds.Dx()
	}
	if maxHeight <= 0 {
		maxHeight = bounds.Dy()
	}
	resized := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	outFormat, contentType := imaging.JPEG, "image/jpeg"
	switch format {
	case "png":
		outFormat, contentType = imaging.PNG, "image/png"
	case "gif":
		outFormat, contentType = imaging.GIF, "image/gif"
	}

	q := int(math.Round(quality * 100))
	if q <= 0 || q > 100 {
		q = 80
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, outFormat, imaging.JPEGQuality(q)); err != nil {
		return File{}, fmt.Errorf("encoding image: %w", err)
	}

	name := f.Name
	if format == "webp" {
		name = strings.TrimSuffix(name, path.Ext(name)) + ".jpg"
	}
	return FileFromBytes(name, contentType, buf.Bytes()), nil
}
