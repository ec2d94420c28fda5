package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"id", "ts_utc", "name", "email", "attending", "room", "session"}

// ExportCSV renders the raw ledger, one row per check-in, in insert
// order. This is the file organizers archive after the event.
func (s *checkinService) ExportCSV(ctx context.Context) ([]byte, error) {
	events, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range events {
		record := []string{strconv.FormatInt(ev.ID, 10), ev.TsUTC, ev.Name, ev.Email, ev.Attending, ev.Room, ev.Session}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSX renders the ledger as a styled workbook: bold frozen
// header, readable column widths.
func (s *checkinService) ExportXLSX(ctx context.Context) ([]byte, error) {
	events, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Checkins"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name export sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("build header style: %w", err)
	}

	for i, h := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("locate header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header cell: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "A", 8); err != nil {
		return nil, fmt.Errorf("size id column: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 22); err != nil {
		return nil, fmt.Errorf("size timestamp column: %w", err)
	}
	if err := f.SetColWidth(sheet, "C", "G", 18); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header row: %w", err)
	}

	for i, ev := range events {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("locate export row: %w", err)
		}
		values := []interface{}{ev.ID, ev.TsUTC, ev.Name, ev.Email, ev.Attending, ev.Room, ev.Session}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write export row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
