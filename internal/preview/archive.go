// This file finds a cover image inside a zip archive so archives get a
// thumbnail too.

package preview

import (
	"archive/zip"
	"fmt"
	"sort"

	"github.com/vrsandeep/filebox/internal/util"
)

// ArchiveCover returns a thumbnail of the first image in the archive, in
// natural name order. ErrNotPreviewable means the archive has no image.
func ArchiveCover(archivePath string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	var images []*zip.File
	for _, f := range r.File {
		// Skip directories and non-image files
		if f.FileInfo().IsDir() || !IsImageFile(f.Name) {
			continue
		}
		images = append(images, f)
	}
	if len(images) == 0 {
		return nil, ErrNotPreviewable
	}
	sort.Slice(images, func(i, j int) bool {
		return util.NaturalSortLess(images[i].Name, images[j].Name)
	})

	rc, err := images[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in archive: %w", images[0].Name, err)
	}
	defer rc.Close()
	return GenerateThumbnail(rc)
}
