package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

// MaxThumbnailSize bounds the longer side of a thumbnail in pixels.
const MaxThumbnailSize uint = 300

// maxSourceBytes caps how much of an image is read to build a thumbnail.
const maxSourceBytes = 32 << 20

var ErrNotPreviewable = errors.New("file has no preview")

// IsImageFile checks if a filename has a common image file extension.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

// GenerateThumbnail decodes an image, scales it so its longer side is at
// most MaxThumbnailSize and returns it encoded as JPEG. Smaller images are
// not enlarged.
func GenerateThumbnail(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(io.LimitReader(r, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := resize.Thumbnail(MaxThumbnailSize, MaxThumbnailSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	// Encode the resized image as a JPEG. Quality 75 is a good balance.
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
