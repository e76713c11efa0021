// Package tabular moves observation records between the xlsx workbook
// mirror and the SQLite store. Both directions are deliberately
// destructive: Import replaces the whole table, Export rewrites the
// whole data region. The store stays the single source of truth; the
// workbook is a snapshot, never reconciled.
package tabular

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/agentic-research/photocat/internal/catalog"
	"github.com/agentic-research/photocat/internal/schema"
)

// SheetName is the worksheet holding observation data.
const SheetName = "ImageData"

// ErrSchemaMismatch is returned when a workbook header names a field
// the store cannot serve.
var ErrSchemaMismatch = errors.New("schema mismatch")

// CreateDataFile writes a brand-new workbook whose single sheet holds
// the catalog's field names as its header row, overwriting any file
// already at path.
func CreateDataFile(path string, reg *schema.Registry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }() // safe to ignore

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := make([]any, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		header = append(header, name)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// Import loads the workbook at path into the store, REPLACING any
// existing observation table. The first row is the header; the table
// gets one column per header field plus every catalog-declared field
// the header omits, typed per the catalog (text when undeclared).
// Empty cells become NULL. A data row wider than the header fails the
// whole import; nothing is committed on error.
func Import(path string, store *catalog.Store, reg *schema.Registry) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // safe to ignore

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: workbook %s has no header row", ErrSchemaMismatch, path)
	}

	header := rows[0]
	for i, name := range header {
		if name == "" {
			return fmt.Errorf("%w: empty header cell %d in %s", ErrSchemaMismatch, i+1, path)
		}
	}

	// Destination columns: header fields first, then declared fields
	// the header omits, so the table is a superset of both.
	cols := make([]catalog.Column, 0, len(header))
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		cols = append(cols, catalog.Column{Name: name, Type: reg.Type(name)})
		seen[name] = true
	}
	for _, name := range reg.Names() {
		if !seen[name] {
			cols = append(cols, catalog.Column{Name: name, Type: reg.Type(name)})
		}
	}

	data := make([][]any, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return fmt.Errorf("row %d: %d cells for %d header fields", i+2, len(row), len(header))
		}
		values := make([]any, len(header))
		for j, cell := range row {
			if cell != "" {
				values[j] = cell
			}
		}
		data = append(data, values)
	}

	if err := store.Replace(cols, header, data); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}

// Export rewrites the workbook's data region from the store. The
// workbook's own header row picks the fields and their order — a
// strict projection, store columns absent from the header are not
// written. All existing data rows are removed first; one row is
// appended per record in the store's scan order, so the sink row count
// matches the store row count afterward. The header itself is never
// touched.
func Export(store *catalog.Store, path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // safe to ignore

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return fmt.Errorf("%w: workbook %s has no header row", ErrSchemaMismatch, path)
	}
	header := rows[0]

	stored, err := store.Columns()
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(stored))
	for _, name := range stored {
		have[name] = true
	}
	for _, name := range header {
		if !have[name] {
			return fmt.Errorf("%w: header field %q not in store", ErrSchemaMismatch, name)
		}
	}

	// Clear the data region bottom-up so row indexes stay valid.
	for i := len(rows); i >= 2; i-- {
		if err := f.RemoveRow(sheet, i); err != nil {
			return fmt.Errorf("clear row %d: %w", i, err)
		}
	}

	rowIdx := 2
	err = store.Scan(header, func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", rowIdx, err)
		}
		rowIdx++
		return nil
	})
	if err != nil {
		return fmt.Errorf("export to %s: %w", path, err)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
