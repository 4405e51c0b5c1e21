package util

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressImageFitsAndReencodes(t *testing.T) {
	src := imaging.New(2048, 1024, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	uri, err := CompressImageToDataURI(&buf)
	require.NoError(t, err)

	const prefix = "data:image/jpeg;base64,"
	require.True(t, strings.HasPrefix(uri, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}

func TestCompressImageRejectsGarbage(t *testing.T) {
	_, err := CompressImageToDataURI(strings.NewReader("definitely not an image"))
	assert.Error(t, err)
}
