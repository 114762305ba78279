package sheets

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 12
	maxColWidth = 80
)

// readXLSX 读取第一个工作表
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("工作簿中没有工作表")
	}
	return f.GetRows(sheets[0])
}

// writeXLSX 使用StreamWriter写出,多行单元格自动换行
func writeXLSX(path string, header []string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	// 列宽必须在写入行之前设置
	for i, width := range columnWidths(header, records) {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}

	row := make([]interface{}, len(header))
	for i, name := range header {
		row[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", row); err != nil {
		return err
	}

	for r, record := range records {
		row := make([]interface{}, len(record))
		for i, value := range record {
			if strings.Contains(value, "\n") {
				row[i] = excelize.Cell{StyleID: wrapStyle, Value: value}
			} else {
				row[i] = value
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// columnWidths 按最长的一行文本估算列宽
func columnWidths(header []string, records [][]string) []float64 {
	widths := make([]float64, len(header))
	measure := func(i int, s string) {
		for _, line := range strings.Split(s, "\n") {
			if w := float64(utf8.RuneCountInString(line)) + 2; w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i, name := range header {
		measure(i, name)
	}
	for _, record := range records {
		for i, value := range record {
			if i < len(widths) {
				measure(i, value)
			}
		}
	}
	for i := range widths {
		if widths[i] < minColWidth {
			widths[i] = minColWidth
		}
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}
	return widths
}
