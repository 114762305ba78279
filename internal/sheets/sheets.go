// Package sheets 读写输入输出表格(CSV和XLSX)
//
// 第一行为表头,之后每行对应一个 models.CrawlRow。全部为空的行会被跳过。
// 输出时列顺序为输入表头加上派生列,多值单元格以换行分隔。
package sheets

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

// ErrUnsupportedFormat 不支持的文件扩展名
var ErrUnsupportedFormat = errors.New("不支持的表格格式")

// Format 表格格式
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat 根据扩展名判断格式
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s (支持 .csv, .xlsx)", ErrUnsupportedFormat, path)
	}
}

// Read 读取表格
func Read(path string) (*models.Sheet, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case FormatCSV:
		records, err = readCSV(path)
	case FormatXLSX:
		records, err = readXLSX(path)
	}
	if err != nil {
		return nil, fmt.Errorf("读取表格失败 [%s]: %w", path, err)
	}

	return buildSheet(records)
}

// Write 写出表格,格式由扩展名决定
func Write(path string, sheet *models.Sheet) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	columns := sheet.AllColumns()
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = row.Get(c)
		}
		records = append(records, record)
	}

	switch format {
	case FormatCSV:
		err = writeCSV(path, columns, records)
	case FormatXLSX:
		err = writeXLSX(path, columns, records)
	}
	if err != nil {
		return fmt.Errorf("写入表格失败 [%s]: %w", path, err)
	}
	return nil
}

// buildSheet 第一条记录为表头
func buildSheet(records [][]string) (*models.Sheet, error) {
	if len(records) == 0 {
		return nil, errors.New("表格为空,缺少表头")
	}

	header := normalizeHeader(records[0])
	sheet := &models.Sheet{Columns: header, Rows: make([]*models.CrawlRow, 0, len(records)-1)}

	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := models.NewCrawlRow(len(sheet.Rows))
		for i, column := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			row.Set(column, value)
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

// normalizeHeader 去除空白,空列名和重复列名补上序号
// 补序号后的列名与已有列名冲突时继续递增
func normalizeHeader(raw []string) []string {
	taken := make(map[string]bool, len(raw))
	for _, name := range raw {
		taken[strings.TrimSpace(name)] = true
	}

	used := make(map[string]bool, len(raw))
	header := make([]string, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if used[name] {
			base := name
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
				if !used[name] && !taken[name] {
					break
				}
			}
		}
		used[name] = true
		header[i] = name
	}
	return header
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
