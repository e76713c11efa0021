package ingest

import (
	"bytes"
	"fmt"
	gopath "path"
	"strings"

	"github.com/go-git/go-billy/v5/util"
)

// Rename is one planned move, both sides relative to the base dir.
type Rename struct {
	From string
	To   string
}

// TimeName returns the canonical file name for a capture timestamp:
// "2006:01:02 15:04:05" becomes "20060102_150405" plus the original
// extension, lowercased.
func TimeName(taken, origName string) (string, error) {
	if _, err := NormalizeTime(taken); err != nil {
		return "", err
	}
	stamp := strings.NewReplacer(":", "", " ", "_").Replace(taken)
	return stamp + strings.ToLower(gopath.Ext(origName)), nil
}

// PlanRenames computes timestamp-derived names for the given images
// and, when apply is set, performs the moves. Images already carrying
// their canonical name are left alone. The returned plan lists every
// rename that was (or would be) made.
func (in *Ingestor) PlanRenames(baseDir string, paths []string, apply bool) ([]Rename, error) {
	var plan []Rename
	for _, p := range paths {
		full := in.fs.Join(baseDir, p)
		data, err := util.ReadFile(in.fs, full)
		if err != nil {
			return plan, fmt.Errorf("read %s: %w", full, err)
		}
		md, err := in.meta.ReadMetadata(bytes.NewReader(data))
		if err != nil {
			return plan, fmt.Errorf("%s: %w", p, err)
		}
		name, err := TimeName(md.Taken, p)
		if err != nil {
			return plan, fmt.Errorf("%s: %w", p, err)
		}
		if gopath.Base(p) == name {
			continue
		}
		to := gopath.Join(gopath.Dir(p), name)
		plan = append(plan, Rename{From: p, To: to})
		if apply {
			if err := in.fs.Rename(full, in.fs.Join(baseDir, to)); err != nil {
				return plan, fmt.Errorf("rename %s: %w", p, err)
			}
		}
	}
	return plan, nil
}
