package render

import (
	"bytes"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// base64Len is the size of n bytes after standard base64 encoding, which is
// what the vision capability's image ceiling is measured against.
func base64Len(n int) int {
	return ((n + 2) / 3) * 4
}

// FitImage downscales a PNG until its base64 encoding fits maxBytes.
// The first attempt scales linear dimensions by sqrt of the size ratio
// (pixel count tracks encoded size roughly linearly) with a 10% buffer,
// then keeps shrinking by 15% per attempt. Dimensions never drop below
// 100px per side.
func FitImage(pngBytes []byte, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 || base64Len(len(pngBytes)) <= maxBytes {
		return pngBytes, nil
	}

	src, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, err
	}

	ratio := float64(base64Len(len(pngBytes))) / float64(maxBytes)
	scale := 0.9 / math.Sqrt(ratio)

	current := pngBytes
	for attempt := 0; attempt < 10 && base64Len(len(current)) > maxBytes; attempt++ {
		w := int(float64(src.Bounds().Dx()) * scale)
		h := int(float64(src.Bounds().Dy()) * scale)
		if w < 100 {
			w = 100
		}
		if h < 100 {
			h = 100
		}

		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

		var buf bytes.Buffer
		if err := png.Encode(&buf, dst); err != nil {
			return nil, err
		}
		current = buf.Bytes()

		if w == 100 && h == 100 {
			break
		}
		scale *= 0.85
	}
	return current, nil
}
