package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"racefeed/internal/rowstore"
)

func writeWorkbook(t *testing.T, sheet string, grid [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}
	for r, row := range grid {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "races.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := writeWorkbook(t, "Races", [][]any{
		{"ID", "STATUS", "RACE NAME", "LINK RACEFINDER"},
		{"1", "revised", "Porto Trail", ""},
	})
	store := rowstore.New(New(path, "Races"), rowstore.Options{})
	ctx := context.Background()

	rows, schema, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(rows) != 1 || rows[0].Get(rowstore.FieldRaceName) != "Porto Trail" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if err := store.WriteField(ctx, schema, rows[0].Position, rowstore.FieldLink, "https://example.com/p"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	got, err := f.GetCellValue("Races", "D2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "https://example.com/p" {
		t.Fatalf("expected saved link, got %q", got)
	}
}

func TestMissingWorksheetFallsBackToFirst(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{{"ID"}, {"7"}})
	store := rowstore.New(New(path, "Other"), rowstore.Options{})
	rows, _, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(rows) != 1 || rows[0].ID() != "7" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestMissingWorkbookFails(t *testing.T) {
	store := rowstore.New(New(filepath.Join(t.TempDir(), "none.xlsx"), ""), rowstore.Options{LoadAttempts: 3})
	if _, _, err := store.LoadAll(context.Background()); err == nil {
		t.Fatal("expected error for missing workbook")
	}
}
