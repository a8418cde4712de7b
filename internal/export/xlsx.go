package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ToXLSX renders rows as a workbook with one sheet: a bold header row from
// the first row's keys, then one row per record.
func ToXLSX(rows []Row, sheet string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}
	if len(rows) > 0 {
		headers := rows[0].Keys()
		header := make([]interface{}, len(headers))
		for i, h := range headers {
			header[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return nil, fmt.Errorf("apply header style: %w", err)
		}
		for i, r := range rows {
			values := make([]interface{}, len(headers))
			for j, h := range headers {
				v, _ := r.Get(h)
				if s, ok := v.([]string); ok {
					v = stringify(s)
				}
				values[j] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
