package filesource

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"marketfeatures/internal/model"
)

// LoadBarsXLSX reads bars from one sheet of a workbook, laid out like the
// CSV form. An empty sheet name selects the first sheet.
func LoadBarsXLSX(path, sheet string) (model.BarSequence, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return parseBarRecords(rows)
}
