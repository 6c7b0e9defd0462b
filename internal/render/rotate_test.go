package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	osd OSD
	err error
}

func (f fakeDetector) DetectOrientation(context.Context, []byte) (OSD, error) {
	return f.osd, f.err
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	// mark the top-left corner so rotation is observable
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseOSD(t *testing.T) {
	report := `Page number: 0
Orientation in degrees: 270
Rotate: 90
Orientation confidence: 2.53
Script: Latin
Script confidence: 1.70`
	osd := ParseOSD(report)
	require.Equal(t, 90, osd.Angle)
	require.InDelta(t, 2.53, osd.Confidence, 0.001)
}

func TestLowConfidenceRotationNotApplied(t *testing.T) {
	src := encodeTestPNG(t, 20, 10)
	c := NewCorrector(fakeDetector{osd: OSD{Angle: 90, Confidence: 0.8}}, 1.0, nil)

	out, angle := c.Correct(context.Background(), src)
	require.Equal(t, 0, angle)
	require.Equal(t, src, out)
}

func TestHighConfidenceRotationApplied(t *testing.T) {
	src := encodeTestPNG(t, 20, 10)
	c := NewCorrector(fakeDetector{osd: OSD{Angle: 90, Confidence: 1.5}}, 1.0, nil)

	out, angle := c.Correct(context.Background(), src)
	require.Equal(t, 90, angle)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 10, img.Bounds().Dx())
	require.Equal(t, 20, img.Bounds().Dy())
}

func TestZeroAngleNeverApplied(t *testing.T) {
	src := encodeTestPNG(t, 10, 10)
	c := NewCorrector(fakeDetector{osd: OSD{Angle: 0, Confidence: 5.0}}, 1.0, nil)

	out, angle := c.Correct(context.Background(), src)
	require.Equal(t, 0, angle)
	require.Equal(t, src, out)
}

func TestDetectorErrorDegradesToNoRotation(t *testing.T) {
	src := encodeTestPNG(t, 10, 10)
	c := NewCorrector(fakeDetector{err: errors.New("osd failed")}, 1.0, nil)

	out, angle := c.Correct(context.Background(), src)
	require.Equal(t, 0, angle)
	require.Equal(t, src, out)
}

func TestRotate180KeepsDimensions(t *testing.T) {
	src := encodeTestPNG(t, 30, 10)
	out, err := rotatePNG(src, 180)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 30, img.Bounds().Dx())
	require.Equal(t, 10, img.Bounds().Dy())

	// the marked top-left pixel moved to the bottom-right
	r, _, _, _ := img.At(29, 9).RGBA()
	require.NotZero(t, r)
}

func TestFitImagePassesSmallImagesThrough(t *testing.T) {
	src := encodeTestPNG(t, 10, 10)
	out, err := FitImage(src, 1<<20)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestFitImageDownscalesLargeImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * y), G: uint8(x ^ y), B: uint8(x + y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	limit := base64Len(buf.Len()) / 2
	out, err := FitImage(buf.Bytes(), limit)
	require.NoError(t, err)
	require.Less(t, base64Len(len(out)), base64Len(buf.Len()))

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Less(t, decoded.Bounds().Dx(), 400)
}
