package directory

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSX returns every row of the first sheet of the workbook at path.
func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// writeXLSX saves rows to a single-sheet workbook at path. Strings, floats,
// float pointers and bools get typed cells; nil leaves a cell empty.
func writeXLSX(path, sheetName string, rows [][]any) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			cell := row.AddCell()
			switch v := v.(type) {
			case string:
				cell.SetString(v)
			case float64:
				cell.SetFloat(v)
			case *float64:
				if v != nil {
					cell.SetFloat(*v)
				}
			case bool:
				cell.SetBool(v)
			case *bool:
				if v != nil {
					cell.SetBool(*v)
				}
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}
