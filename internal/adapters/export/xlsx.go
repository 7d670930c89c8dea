// Package export writes spreadsheets for admins and reads uploaded rows for
// imports.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"crm/internal/domain/deal"
	"crm/internal/domain/money"
	"crm/internal/domain/studio"
)

// ContentTypeXLSX is the MIME type for the files written here.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	dealSheet      = "Deals"
	inventorySheet = "Inventory"
	lowStockSheet  = "Low stock"
	dateLayout     = "02/01/2006"
)

// DealHeaders is the header row of the deals sheet. ImportDeals accepts the
// same names.
var DealHeaders = []string{"Name", "Email", "Phone", "City", "Source", "Stage", "Value", "Mod1 Code", "Mod2 Code", "Notes", "Created"}

var inventoryHeaders = []string{"Studio", "City", "SKU", "Item", "Quantity", "Minimum", "Low", "Updated"}

// WriteDeals writes deals to w as a single-sheet workbook.
func WriteDeals(w io.Writer, deals []deal.Deal) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", dealSheet); err != nil {
		return err
	}

	rows := make([][]any, 0, len(deals))
	for _, d := range deals {
		rows = append(rows, []any{
			d.Name, d.Email, d.Phone, d.City, d.Source, d.Stage,
			money.FormatBRL(d.ValueCents), d.ClassCodeMod1, d.ClassCodeMod2, d.Notes,
			formatDate(d.CreatedAt.IsZero(), d.CreatedAt.Format(dateLayout)),
		})
	}
	if err := writeSheet(f, dealSheet, DealHeaders, rows); err != nil {
		return err
	}
	return writeTo(f, w)
}

// WriteInventory writes every item with its studio to one sheet and the
// low-stock subset to a second sheet.
func WriteInventory(w io.Writer, studios []studio.Studio, items []studio.Item) error {
	byID := make(map[string]studio.Studio, len(studios))
	for _, s := range studios {
		byID[s.ID] = s
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(lowStockSheet); err != nil {
		return err
	}

	var all, low [][]any
	for _, it := range items {
		s := byID[it.StudioID]
		lowMark := ""
		if it.IsLow() {
			lowMark = "yes"
		}
		row := []any{s.Name, s.City, it.SKU, it.Name, it.Quantity, it.MinQuantity, lowMark,
			formatDate(it.UpdatedAt.IsZero(), it.UpdatedAt.Format(dateLayout))}
		all = append(all, row)
		if it.IsLow() {
			low = append(low, row)
		}
	}
	if err := writeSheet(f, inventorySheet, inventoryHeaders, all); err != nil {
		return err
	}
	if err := writeSheet(f, lowStockSheet, inventoryHeaders, low); err != nil {
		return err
	}
	return writeTo(f, w)
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeTo(f *excelize.File, w io.Writer) error {
	_, err := f.WriteTo(w)
	return err
}

func formatDate(zero bool, formatted string) string {
	if zero {
		return ""
	}
	return formatted
}
