package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// exifTimeLayout is the EXIF DateTimeOriginal format.
const exifTimeLayout = "2006:01:02 15:04:05"

// Metadata is the subset of image metadata ingestion requires. Keys
// beyond these are tolerated upstream but never consulted.
type Metadata struct {
	Taken  string // capture timestamp, EXIF "2006:01:02 15:04:05" form
	Width  int
	Height int
}

// MetadataReader extracts required metadata from raw image bytes.
type MetadataReader interface {
	ReadMetadata(r io.Reader) (Metadata, error)
}

// MetadataError reports a missing or unusable required metadata field
// for a single image. It fails that image only, never the batch.
type MetadataError struct {
	Field string
	Err   error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata field %s: %v", e.Field, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// ExifReader reads metadata from EXIF tags.
type ExifReader struct{}

func (ExifReader) ReadMetadata(r io.Reader) (Metadata, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return Metadata{}, &MetadataError{Field: "exif", Err: err}
	}

	var md Metadata

	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return Metadata{}, &MetadataError{Field: string(exif.DateTimeOriginal), Err: err}
	}
	md.Taken, err = tag.StringVal()
	if err != nil {
		return Metadata{}, &MetadataError{Field: string(exif.DateTimeOriginal), Err: err}
	}

	if md.Width, err = tagInt(x, exif.PixelXDimension); err != nil {
		return Metadata{}, err
	}
	if md.Height, err = tagInt(x, exif.PixelYDimension); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

func tagInt(x *exif.Exif, name exif.FieldName) (int, error) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, &MetadataError{Field: string(name), Err: err}
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, &MetadataError{Field: string(name), Err: err}
	}
	return v, nil
}

// NormalizeTime rewrites an EXIF capture timestamp's date separators
// from colons to slashes ("2006:01:02 15:04:05" → "2006/01/02
// 15:04:05"). A timestamp that does not match the EXIF layout is an
// explicit error, never a silent rewrite.
func NormalizeTime(taken string) (string, error) {
	if _, err := time.Parse(exifTimeLayout, taken); err != nil {
		return "", &MetadataError{Field: "datetime_original", Err: err}
	}
	return strings.Replace(taken, ":", "/", 2), nil
}
