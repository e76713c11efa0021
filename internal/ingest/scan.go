package ingest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// imageExts is the fixed extension set recognized as images.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// IsImage reports whether a file name carries an image extension.
// Matching is case-insensitive regardless of the host filesystem, so
// a single predicate covers both Windows and POSIX layouts.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// ListImages walks root recursively and returns every image file as a
// slash-separated path relative to root, sorted for deterministic
// batch order.
func ListImages(fsys billy.Filesystem, root string) ([]string, error) {
	var paths []string
	err := util.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !IsImage(info.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
