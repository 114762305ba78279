package models

import "strings"

// CrawlRow 表格中的一行记录
// 列名到单元格值的有序映射,爬取结果以新列的形式原地追加
type CrawlRow struct {
	// Index 行号(从0开始,不含表头)
	Index int

	columns []string
	values  map[string]string
}

// NewCrawlRow 创建空行
func NewCrawlRow(index int) *CrawlRow {
	return &CrawlRow{
		Index:   index,
		columns: make([]string, 0),
		values:  make(map[string]string),
	}
}

// Get 获取列值,列不存在时返回空字符串
func (r *CrawlRow) Get(column string) string {
	return r.values[column]
}

// Set 设置列值,新列按首次设置的顺序追加
func (r *CrawlRow) Set(column, value string) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// URL 获取URL列的值(去除首尾空白)
func (r *CrawlRow) URL(column string) string {
	return strings.TrimSpace(r.values[column])
}

// Columns 返回列名(按插入顺序)
func (r *CrawlRow) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Sheet 一张表: 表头 + 数据行
type Sheet struct {
	Columns []string
	Rows    []*CrawlRow
}

// AllColumns 返回输出时的列顺序
// 先输入表头,再追加各行中新出现的列(派生列)
func (s *Sheet) AllColumns() []string {
	seen := make(map[string]bool, len(s.Columns))
	result := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !seen[c] {
			seen[c] = true
			result = append(result, c)
		}
	}
	for _, row := range s.Rows {
		for _, c := range row.columns {
			if !seen[c] {
				seen[c] = true
				result = append(result, c)
			}
		}
	}
	return result
}
