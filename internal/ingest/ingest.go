// Package ingest builds observation records for image files: one
// record per new image, keyed by relative path, carrying EXIF-derived
// metadata, a content hash, and fresh identifiers. Each new image
// starts as its own singleton group.
package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	gopath "path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentic-research/photocat/internal/catalog"
)

// Failure records one image that could not be ingested.
type Failure struct {
	Path string
	Err  error
}

// Report summarizes a batch. Failures are isolated per image: a bad
// image never aborts the rest of the batch.
type Report struct {
	Added   int
	Skipped int
	Failed  []Failure
}

// Comparison counts how the folder scan and the store overlap.
type Comparison struct {
	FolderOnly int
	StoreOnly  int
	Both       int
}

// Ingestor builds and inserts observation records.
type Ingestor struct {
	store  *catalog.Store
	fs     billy.Filesystem
	meta   MetadataReader
	logger *zap.Logger
}

func NewIngestor(store *catalog.Store, fsys billy.Filesystem, meta MetadataReader, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: store, fs: fsys, meta: meta, logger: logger}
}

// AddImages ingests the given paths (relative to baseDir). Paths whose
// record already exists are skipped and counted; per-image metadata or
// read failures land in the report. A store-level failure aborts the
// batch and returns the report so far.
func (in *Ingestor) AddImages(baseDir string, paths []string) (Report, error) {
	var report Report
	for _, p := range paths {
		exists, err := in.store.HasPath(p)
		if err != nil {
			return report, err
		}
		if exists {
			in.logger.Info("skipping existing image", zap.String("path", p))
			report.Skipped++
			continue
		}
		if err := in.addOne(baseDir, p); err != nil {
			in.logger.Warn("image failed", zap.String("path", p), zap.Error(err))
			report.Failed = append(report.Failed, Failure{Path: p, Err: err})
			continue
		}
		report.Added++
	}
	return report, nil
}

func (in *Ingestor) addOne(baseDir, relPath string) error {
	full := in.fs.Join(baseDir, relPath)
	data, err := util.ReadFile(in.fs, full)
	if err != nil {
		return fmt.Errorf("read %s: %w", full, err)
	}

	md, err := in.meta.ReadMetadata(bytes.NewReader(data))
	if err != nil {
		return err
	}
	taken, err := NormalizeTime(md.Taken)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	rec := catalog.Record{
		catalog.FieldImageName:     gopath.Base(relPath),
		catalog.FieldImagePath:     relPath,
		catalog.FieldImageBytes:    len(data),
		catalog.FieldImageTime:     taken,
		catalog.FieldImageW:        md.Width,
		catalog.FieldImageH:        md.Height,
		catalog.FieldImageHash:     hex.EncodeToString(sum[:]),
		catalog.FieldObservationID: uuid.NewString(),
		catalog.FieldGroupID:       uuid.NewString(),
		catalog.FieldGroupNumber:   1,
	}
	return in.store.Insert(rec)
}

// Compare diffs the folder scan against the store's image paths.
// Read-only: counts, no mutation.
func (in *Ingestor) Compare(dir string) (Comparison, error) {
	folder, stored, err := in.pathSets(dir)
	if err != nil {
		return Comparison{}, err
	}
	var c Comparison
	for p := range folder {
		if _, ok := stored[p]; ok {
			c.Both++
		} else {
			c.FolderOnly++
		}
	}
	for p := range stored {
		if _, ok := folder[p]; !ok {
			c.StoreOnly++
		}
	}
	return c, nil
}

// LoadNew ingests only the images present in the folder but absent
// from the store.
func (in *Ingestor) LoadNew(dir string) (Report, error) {
	folder, stored, err := in.pathSets(dir)
	if err != nil {
		return Report{}, err
	}
	var fresh []string
	for p := range folder {
		if _, ok := stored[p]; !ok {
			fresh = append(fresh, p)
		}
	}
	sort.Strings(fresh)
	in.logger.Info("adding new images", zap.Int("count", len(fresh)))
	return in.AddImages(dir, fresh)
}

func (in *Ingestor) pathSets(dir string) (folder, stored map[string]struct{}, err error) {
	paths, err := ListImages(in.fs, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	folder = make(map[string]struct{}, len(paths))
	for _, p := range paths {
		folder[p] = struct{}{}
	}
	stored, err = in.store.ImagePaths()
	if err != nil {
		return nil, nil, err
	}
	return folder, stored, nil
}
