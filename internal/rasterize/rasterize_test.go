package rasterize

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapLongestEdgeLeavesSmallImagesUntouched(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	out := capLongestEdge(img, 200)
	require.Equal(t, img.Bounds(), out.Bounds())
}

func TestCapLongestEdgeScalesDownPreservingAspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	out := capLongestEdge(img, 1000)
	b := out.Bounds()
	require.Equal(t, 1000, b.Dx())
	require.Equal(t, 500, b.Dy())
}

func TestCapLongestEdgeScalesByTallestSide(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 800, 1600))
	out := capLongestEdge(img, 400)
	b := out.Bounds()
	require.Equal(t, 200, b.Dx())
	require.Equal(t, 400, b.Dy())
}

func TestCapLongestEdgeNeverProducesZeroDimension(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5000, 1))
	out := capLongestEdge(img, 10)
	b := out.Bounds()
	require.GreaterOrEqual(t, b.Dx(), 1)
	require.GreaterOrEqual(t, b.Dy(), 1)
}

func TestLooksPasswordRelatedDetectsPasswordAndEncryptKeywords(t *testing.T) {
	require.True(t, looksPasswordRelated(errors.New("document requires a password")))
	require.True(t, looksPasswordRelated(errors.New("cannot decrypt: bad encryption key")))
	require.False(t, looksPasswordRelated(errors.New("unexpected end of file")))
}
