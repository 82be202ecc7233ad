package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/webp"
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".heic": true,
	".heif": true,
	".png":  true,
	".webp": true,
}

// AllowedExtension returns the lowercased extension of the uploaded file
// name and whether it is on the upload allow-list.
func AllowedExtension(fileName string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext, allowedExtensions[ext]
}

// NormalizeImage returns the bytes to persist and the extension to store
// them under. A png or webp image carrying transparency is flattened onto
// white and re-encoded as JPEG; everything else is stored as received.
// jpeg/heic/heif have no alpha channel and pass through unchanged.
func NormalizeImage(data []byte, ext string) ([]byte, string, error) {
	var (
		img image.Image
		err error
	)
	switch ext {
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	case ".webp":
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return data, ext, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if isOpaque(img) {
		return data, ext, nil
	}
	flattened, err := flattenToJPEG(img)
	if err != nil {
		return nil, "", err
	}
	return flattened, ".jpg", nil
}

func isOpaque(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

func flattenToJPEG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	rgb := image.NewRGBA(bounds)
	draw.Draw(rgb, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(rgb, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
