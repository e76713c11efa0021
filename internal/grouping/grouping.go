// Package grouping maintains the observation-group relation: a flat
// relabeling over the group_id column. Group performs a union of two
// groups, Ungroup a singleton split. No group object is stored — an
// unreferenced group simply ceases to exist.
package grouping

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentic-research/photocat/internal/catalog"
	"github.com/agentic-research/photocat/internal/schema"
)

// Engine mutates group membership and propagates copy-on-merge fields.
type Engine struct {
	store  *catalog.Store
	reg    *schema.Registry
	logger *zap.Logger
}

func NewEngine(store *catalog.Store, reg *schema.Registry, logger *zap.Logger) *Engine {
	return &Engine{store: store, reg: reg, logger: logger}
}

// Ungroup assigns the record a freshly generated group id, splitting
// it out of whatever group it was in. Every record always keeps a
// non-empty group id; each call consumes a new identifier even when
// the record was already alone.
func (e *Engine) Ungroup(obsID string) error {
	if _, err := e.store.ByObservation(obsID); err != nil {
		return fmt.Errorf("observation %s: %w", obsID, err)
	}
	gid := uuid.NewString()
	e.logger.Info("ungrouping observation", zap.String("observation", obsID), zap.String("group", gid))
	return e.store.Update(obsID, catalog.Record{catalog.FieldGroupID: gid})
}

// Group merges observation a into b's group. The "from" side is
// always a's record and the "to" side b's record — fixed by argument
// order, never by retrieval order. a takes b's group id; b's own
// grouping is untouched. Then a bidirectional copy pass runs over
// every catalog field flagged copy: whichever side is missing a value
// receives it from the other, and a side that already holds a value
// is never overwritten. Merging a record with itself, or two records
// already sharing a group, is harmless.
func (e *Engine) Group(obsA, obsB string) error {
	from, err := e.store.ByObservation(obsA)
	if err != nil {
		return fmt.Errorf("observation %s: %w", obsA, err)
	}
	to, err := e.store.ByObservation(obsB)
	if err != nil {
		return fmt.Errorf("observation %s: %w", obsB, err)
	}

	if from[catalog.FieldGroupID] != to[catalog.FieldGroupID] {
		if err := e.store.Update(obsA, catalog.Record{catalog.FieldGroupID: to[catalog.FieldGroupID]}); err != nil {
			return err
		}
	}

	for _, dir := range [2][2]catalog.Record{{from, to}, {to, from}} {
		src, dst := dir[0], dir[1]
		updates := catalog.Record{}
		for _, name := range e.reg.CopyFields() {
			if dst[name] == nil && src[name] != nil {
				updates[name] = src[name]
			}
		}
		if len(updates) == 0 {
			continue
		}
		dstID, ok := dst[catalog.FieldObservationID].(string)
		if !ok {
			return fmt.Errorf("record without %s", catalog.FieldObservationID)
		}
		e.logger.Info("propagating merge fields",
			zap.String("observation", dstID), zap.Int("fields", len(updates)))
		if err := e.store.Update(dstID, updates); err != nil {
			return err
		}
	}
	return nil
}
