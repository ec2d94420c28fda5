package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

const (
	checkinSheet = "Checkins"
	emailColumn  = 2 // zero-based position of the email cell in a row
)

var workbookHeader = []interface{}{"ts_utc", "name", "email", "attending", "room", "session"}

// WorkbookTarget mirrors check-ins into an .xlsx workbook on disk, one
// sheet, one row per person. Organizers can open the file mid-event;
// every upsert rewrites it whole so the copy on disk is always valid.
type WorkbookTarget struct {
	mu   sync.Mutex
	path string
}

var _ Target = (*WorkbookTarget)(nil)

func NewWorkbookTarget(path string) *WorkbookTarget {
	return &WorkbookTarget{path: path}
}

func (t *WorkbookTarget) Name() string { return "workbook" }

func (t *WorkbookTarget) Upsert(_ context.Context, row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(checkinSheet)
	if err != nil {
		return fmt.Errorf("read mirror sheet: %w", err)
	}

	// Row 1 is the header. Match on normalized email, like the ledger.
	norm := strings.ToLower(strings.TrimSpace(row.Email))
	rowNum := len(rows) + 1
	for i, existing := range rows {
		if i == 0 || len(existing) <= emailColumn {
			continue
		}
		if strings.ToLower(strings.TrimSpace(existing[emailColumn])) == norm {
			rowNum = i + 1
			break
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("locate mirror row: %w", err)
	}
	values := []interface{}{row.TsUTC, row.Name, row.Email, row.Attending, row.Room, row.Session}
	if err := f.SetSheetRow(checkinSheet, cell, &values); err != nil {
		return fmt.Errorf("write mirror row: %w", err)
	}

	if err := f.SaveAs(t.path); err != nil {
		return fmt.Errorf("save mirror workbook: %w", err)
	}
	return nil
}

// open returns the workbook at path, creating it with a header row on
// first use.
func (t *WorkbookTarget) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(t.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open mirror workbook: %w", err)
		}
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", checkinSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("name mirror sheet: %w", err)
		}
		if err := f.SetSheetRow(checkinSheet, "A1", &workbookHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write mirror header: %w", err)
		}
		return f, nil
	}

	idx, err := f.GetSheetIndex(checkinSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("find mirror sheet: %w", err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(checkinSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("create mirror sheet: %w", err)
		}
		if err := f.SetSheetRow(checkinSheet, "A1", &workbookHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write mirror header: %w", err)
		}
	}
	return f, nil
}
