package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentic-research/photocat/internal/catalog"
	"github.com/agentic-research/photocat/internal/schema"
)

const testCatalog = `
field "image_path" {}

field "image_w" {
  type = "integer"
  copy = true
}

field "observation_id" {}

field "group_id" {}

field "subject" {
  copy = true
}
`

func newTestEngine(t *testing.T) (*Engine, *catalog.Store) {
	t.Helper()
	reg, err := schema.Parse("test.hcl", []byte(testCatalog))
	require.NoError(t, err)

	store, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cols := []catalog.Column{
		{Name: "image_path", Type: "text"},
		{Name: "image_w", Type: "integer"},
		{Name: "observation_id", Type: "text"},
		{Name: "group_id", Type: "text"},
		{Name: "subject", Type: "text"},
	}
	require.NoError(t, store.Replace(cols, nil, nil))

	return NewEngine(store, reg, zap.NewNop()), store
}

func insert(t *testing.T, store *catalog.Store, rec catalog.Record) {
	t.Helper()
	require.NoError(t, store.Insert(rec))
}

func fetch(t *testing.T, store *catalog.Store, obsID string) catalog.Record {
	t.Helper()
	rec, err := store.ByObservation(obsID)
	require.NoError(t, err)
	return rec
}

func TestGroupMergesAndPropagates(t *testing.T) {
	engine, store := newTestEngine(t)
	insert(t, store, catalog.Record{
		"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "g1",
		"subject": "wren",
	})
	insert(t, store, catalog.Record{
		"image_path": "b.jpg", "observation_id": "obs-b", "group_id": "g2",
		"image_w": 4000,
	})

	require.NoError(t, engine.Group("obs-a", "obs-b"))

	a := fetch(t, store, "obs-a")
	assert.Equal(t, "g2", a["group_id"], "a joins b's group")
	assert.Equal(t, int64(4000), a["image_w"], "missing value filled from b")
	assert.Equal(t, "wren", a["subject"])

	b := fetch(t, store, "obs-b")
	assert.Equal(t, "g2", b["group_id"], "b's grouping untouched")
	assert.Equal(t, int64(4000), b["image_w"])
	assert.Equal(t, "wren", b["subject"], "missing value filled from a")
}

func TestGroupNeverOverwrites(t *testing.T) {
	engine, store := newTestEngine(t)
	insert(t, store, catalog.Record{
		"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "g1",
		"subject": "wren", "image_w": 100,
	})
	insert(t, store, catalog.Record{
		"image_path": "b.jpg", "observation_id": "obs-b", "group_id": "g2",
		"subject": "crow", "image_w": 200,
	})

	require.NoError(t, engine.Group("obs-a", "obs-b"))

	assert.Equal(t, "wren", fetch(t, store, "obs-a")["subject"])
	assert.Equal(t, int64(100), fetch(t, store, "obs-a")["image_w"])
	assert.Equal(t, "crow", fetch(t, store, "obs-b")["subject"])
	assert.Equal(t, int64(200), fetch(t, store, "obs-b")["image_w"])
}

func TestGroupIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	insert(t, store, catalog.Record{
		"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "g1",
	})
	insert(t, store, catalog.Record{
		"image_path": "b.jpg", "observation_id": "obs-b", "group_id": "g2",
		"image_w": 4000, "subject": "crow",
	})

	require.NoError(t, engine.Group("obs-a", "obs-b"))
	first := fetch(t, store, "obs-a")

	require.NoError(t, engine.Group("obs-a", "obs-b"))
	assert.Equal(t, first, fetch(t, store, "obs-a"), "second merge has no further effect")
}

func TestGroupCommutativePerField(t *testing.T) {
	seed := func(t *testing.T) (*Engine, *catalog.Store) {
		engine, store := newTestEngine(t)
		insert(t, store, catalog.Record{
			"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "g1",
			"subject": "wren",
		})
		insert(t, store, catalog.Record{
			"image_path": "b.jpg", "observation_id": "obs-b", "group_id": "g2",
		})
		return engine, store
	}

	engine, store := seed(t)
	require.NoError(t, engine.Group("obs-a", "obs-b"))
	assert.Equal(t, "wren", fetch(t, store, "obs-b")["subject"])

	// Calling in the other direction yields the same field values;
	// only the group convergence direction differs.
	engine, store = seed(t)
	require.NoError(t, engine.Group("obs-b", "obs-a"))
	assert.Equal(t, "wren", fetch(t, store, "obs-b")["subject"])
	assert.Equal(t, "g1", fetch(t, store, "obs-b")["group_id"])
}

func TestGroupWithSelf(t *testing.T) {
	engine, store := newTestEngine(t)
	insert(t, store, catalog.Record{
		"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "g1",
		"subject": "wren",
	})

	require.NoError(t, engine.Group("obs-a", "obs-a"))

	a := fetch(t, store, "obs-a")
	assert.Equal(t, "g1", a["group_id"])
	assert.Equal(t, "wren", a["subject"])
}

func TestGroupAlreadySameGroup(t *testing.T) {
	engine, store := newTestEngine(t)
	insert(t, store, catalog.Record{
		"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "g1",
	})
	insert(t, store, catalog.Record{
		"image_path": "b.jpg", "observation_id": "obs-b", "group_id": "g1",
		"subject": "crow",
	})

	require.NoError(t, engine.Group("obs-a", "obs-b"))

	assert.Equal(t, "g1", fetch(t, store, "obs-a")["group_id"])
	assert.Equal(t, "crow", fetch(t, store, "obs-a")["subject"], "copy pass still runs")
}

func TestGroupUnknownObservation(t *testing.T) {
	engine, store := newTestEngine(t)
	insert(t, store, catalog.Record{
		"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "g1",
	})

	assert.ErrorIs(t, engine.Group("ghost", "obs-a"), catalog.ErrRecordNotFound)
	assert.ErrorIs(t, engine.Group("obs-a", "ghost"), catalog.ErrRecordNotFound)
}

func TestUngroup(t *testing.T) {
	engine, store := newTestEngine(t)
	insert(t, store, catalog.Record{
		"image_path": "a.jpg", "observation_id": "obs-a", "group_id": "shared",
	})
	insert(t, store, catalog.Record{
		"image_path": "b.jpg", "observation_id": "obs-b", "group_id": "shared",
	})

	require.NoError(t, engine.Ungroup("obs-a"))

	a := fetch(t, store, "obs-a")
	assert.NotEmpty(t, a["group_id"], "group id is never null")
	assert.NotEqual(t, "shared", a["group_id"])
	assert.Equal(t, "shared", fetch(t, store, "obs-b")["group_id"])

	// Each call consumes a fresh identifier.
	first := a["group_id"]
	require.NoError(t, engine.Ungroup("obs-a"))
	assert.NotEqual(t, first, fetch(t, store, "obs-a")["group_id"])
}

func TestUngroupUnknownObservation(t *testing.T) {
	engine, _ := newTestEngine(t)
	assert.ErrorIs(t, engine.Ungroup("ghost"), catalog.ErrRecordNotFound)
}
