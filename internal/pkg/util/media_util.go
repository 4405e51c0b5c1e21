package util

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	ImageMaxDimension = 1024
	ImageJPEGQuality  = 75
	// ImageMaxBytes 上传原图上限
	ImageMaxBytes = 8 << 20
)

// CompressImageToDataURI 解码、等比缩放到 1024 以内、JPEG 重编码后转 data URI
func CompressImageToDataURI(r io.Reader) (string, error) {
	img, err := imaging.Decode(io.LimitReader(r, ImageMaxBytes+1), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > ImageMaxDimension || b.Dy() > ImageMaxDimension {
		img = imaging.Fit(img, ImageMaxDimension, ImageMaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(ImageJPEGQuality)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
