package sheet

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// WorkbookConnector writes rows to a local .xlsx file. The file is created
// on the first write when it does not exist.
type WorkbookConnector struct {
	Path      string
	SheetName string
}

func (c WorkbookConnector) Connect(ctx context.Context) (Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Workbook{path: c.Path, name: c.SheetName}, nil
}

// Workbook opens the file on Extent, so a read-then-write pair always sees
// what the previous writer saved.
type Workbook struct {
	path string
	name string
	file *excelize.File
}

func (w *Workbook) open() error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
	} else if err != nil {
		return errors.Wrap(err, "sheet.workbook.open")
	}

	idx, err := f.GetSheetIndex(w.name)
	if err != nil {
		f.Close()
		return errors.Wrap(err, "sheet.workbook.sheet_index")
	}
	if idx == -1 {
		_, err = f.NewSheet(w.name)
		if err != nil {
			f.Close()
			return errors.Wrap(err, "sheet.workbook.new_sheet")
		}
	}

	w.file = f
	return nil
}

func (w *Workbook) Extent(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	err := w.open()
	if err != nil {
		return 0, err
	}

	cols, err := w.file.GetCols(w.name)
	if err != nil {
		return 0, errors.Wrap(err, "sheet.workbook.read_column")
	}
	if len(cols) == 0 {
		return 0, nil
	}

	colA := cols[0]
	n := len(colA)
	for n > 0 && strings.TrimSpace(colA[n-1]) == "" {
		n--
	}
	return n, nil
}

func (w *Workbook) WriteRow(ctx context.Context, row int, cells []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.file == nil {
		err := w.open()
		if err != nil {
			return err
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrapf(err, "sheet.workbook.write_row(%d)", row)
	}
	err = w.file.SetSheetRow(w.name, cell, &cells)
	if err != nil {
		return errors.Wrapf(err, "sheet.workbook.write_row(%d)", row)
	}
	err = w.file.SaveAs(w.path)
	if err != nil {
		return errors.Wrap(err, "sheet.workbook.save")
	}
	return nil
}

func (w *Workbook) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
