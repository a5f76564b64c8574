package storage

import (
	"path/filepath"

	"github.com/h2non/bimg"
)

// thumbWidth is the fixed width of listing thumbnails; height follows the
// source aspect ratio.
const thumbWidth = 320

func (s *DiskStore) writeThumbnail(srcPath, filename string) error {
	buf, err := bimg.Read(srcPath)
	if err != nil {
		return err
	}
	thumb, err := bimg.NewImage(buf).Resize(thumbWidth, 0)
	if err != nil {
		return err
	}
	return bimg.Write(filepath.Join(s.dir, thumbPrefix+filename), thumb)
}
