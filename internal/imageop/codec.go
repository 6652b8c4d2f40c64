package imageop

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

var imagingFormats = map[string]imaging.Format{
	"jpeg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"bmp":  imaging.BMP,
	"tiff": imaging.TIFF,
}

func decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	return img, format, nil
}

func encode(img image.Image, format string, quality int) ([]byte, string, error) {
	if format == "jpg" {
		format = "jpeg"
	}
	f, ok := imagingFormats[format]
	if !ok {
		f, format = imaging.JPEG, "jpeg"
	}

	var buf bytes.Buffer
	var err error
	if f == imaging.JPEG {
		err = imaging.Encode(&buf, img, f, imaging.JPEGQuality(quality))
	} else {
		err = imaging.Encode(&buf, img, f)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrOperationFailed, err)
	}
	return buf.Bytes(), contentTypes[format], nil
}

// ExtensionForContentType 由 content type 推导扩展名，默认 jpg
func ExtensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "bmp"):
		return "bmp"
	case strings.Contains(contentType, "tiff"):
		return "tiff"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

func parseHexColor(s string, def color.NRGBA) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return def
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return def
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
