package tabular

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agentic-research/photocat/internal/catalog"
	"github.com/agentic-research/photocat/internal/schema"
)

const testCatalog = `
field "image_path" {}

field "image_name" {}

field "image_w" {
  type = "integer"
}

field "group_id" {}

field "subject" {
  copy = true
}
`

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Parse("test.hcl", []byte(testCatalog))
	require.NoError(t, err)
	return reg
}

func testStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// writeWorkbook builds an xlsx fixture with the given header and rows.
func writeWorkbook(t *testing.T, path string, header []string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetName("Sheet1", SheetName))

	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	require.NoError(t, f.SetSheetRow(SheetName, "A1", &cells))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(SheetName, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

// readRows returns all rows of the active sheet as strings.
func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	return rows
}

func TestCreateDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, CreateDataFile(path, testRegistry(t)))

	rows := readRows(t, path)
	require.Len(t, rows, 1, "fresh data file is header only")
	assert.Equal(t, []string{"image_path", "image_name", "image_w", "group_id", "subject"}, rows[0])
}

func TestImportBuildsSupersetTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	writeWorkbook(t, path, []string{"image_path", "image_name"}, [][]any{
		{"a.jpg", "a.jpg"},
	})
	store := testStore(t)

	require.NoError(t, Import(path, store, testRegistry(t)))

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Table columns: header fields first, then the declared remainder.
	cols, err := store.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"image_path", "image_name", "image_w", "group_id", "subject"}, cols)

	rec, err := store.ByPath("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", rec["image_name"])
	assert.Nil(t, rec["image_w"], "columns outside the header stay NULL")
}

func TestImportReplacesExistingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	writeWorkbook(t, path, []string{"image_path"}, [][]any{{"new.jpg"}})
	store := testStore(t)
	require.NoError(t, store.Replace(
		[]catalog.Column{{Name: "image_path", Type: "text"}},
		[]string{"image_path"},
		[][]any{{"old1.jpg"}, {"old2.jpg"}},
	))

	require.NoError(t, Import(path, store, testRegistry(t)))

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "import replaces, never appends")
}

func TestImportEmptyCellsBecomeNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	writeWorkbook(t, path, []string{"image_path", "subject", "image_name"}, [][]any{
		{"a.jpg", nil, "a.jpg"},
		{"b.jpg", "wren"},
	})
	store := testStore(t)

	require.NoError(t, Import(path, store, testRegistry(t)))

	rec, err := store.ByPath("a.jpg")
	require.NoError(t, err)
	assert.Nil(t, rec["subject"])

	rec, err = store.ByPath("b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "wren", rec["subject"])
	assert.Nil(t, rec["image_name"], "short row pads with NULL")
}

func TestImportRejectsMissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	_ = f.Close()

	err := Import(path, testStore(t), testRegistry(t))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestImportMissingFileFails(t *testing.T) {
	err := Import(filepath.Join(t.TempDir(), "nope.xlsx"), testStore(t), testRegistry(t))
	assert.Error(t, err)
}

func TestExportProjectsHeaderFields(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.xlsx")

	store := testStore(t)
	require.NoError(t, store.Replace(
		[]catalog.Column{
			{Name: "image_path", Type: "text"},
			{Name: "image_w", Type: "integer"},
			{Name: "subject", Type: "text"},
			{Name: "group_id", Type: "text"},
		},
		[]string{"image_path", "image_w", "subject", "group_id"},
		[][]any{
			{"b.jpg", 4000, "wren", "g2"},
			{"a.jpg", nil, nil, "g1"},
		},
	))

	// Stale data rows must be cleared, not merged.
	writeWorkbook(t, data, []string{"image_path", "image_w", "subject"}, [][]any{
		{"stale.jpg", 1, "stale"},
	})

	require.NoError(t, Export(store, data))

	rows := readRows(t, data)
	require.Len(t, rows, 3, "one data row per record, stale rows gone")
	assert.Equal(t, []string{"image_path", "image_w", "subject"}, rows[0], "header untouched")
	assert.Equal(t, "b.jpg", rows[1][0], "scan order preserved")
	assert.Equal(t, "4000", rows[1][1])
	assert.Equal(t, []string{"a.jpg"}, rows[2], "NULLs export as blank cells")
}

func TestExportUnknownHeaderField(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.xlsx")
	writeWorkbook(t, data, []string{"image_path", "no_such_field"}, nil)

	store := testStore(t)
	require.NoError(t, store.Replace(
		[]catalog.Column{{Name: "image_path", Type: "text"}}, nil, nil))

	err := Export(store, data)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	writeWorkbook(t, path, []string{"image_path", "image_name", "image_w", "group_id", "subject"}, [][]any{
		{"a.jpg", "a.jpg", 100, "g1", "wren"},
		{"b.jpg", "b.jpg", nil, "g2", nil},
		{"c.jpg", "c.jpg", 300, "g1", "crow"},
	})
	reg := testRegistry(t)
	store := testStore(t)

	require.NoError(t, Import(path, store, reg))
	require.NoError(t, Export(store, path))

	first := readRows(t, path)

	// A second import/export cycle must reproduce the identical sheet.
	require.NoError(t, Import(path, store, reg))
	require.NoError(t, Export(store, path))

	assert.Equal(t, first, readRows(t, path))
}
