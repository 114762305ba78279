package models

import "strings"

// CellSeparator 多值单元格的分隔符,表格中显示为多行
const CellSeparator = "\n"

// KV 标签-值对
type KV struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ExtractionResult 一次提取策略的结果
// 列表型(标题、特性)使用Items,键值型(产品参数)使用Pairs
type ExtractionResult struct {
	Strategy string   `json:"strategy"`
	Items    []string `json:"items,omitempty"`
	Pairs    []KV     `json:"pairs,omitempty"`
}

// Empty 是否为空结果
func (r *ExtractionResult) Empty() bool {
	return r == nil || (len(r.Items) == 0 && len(r.Pairs) == 0)
}

// Flatten 展平为单元格文本
func (r *ExtractionResult) Flatten() string {
	if r.Empty() {
		return ""
	}
	if len(r.Pairs) > 0 {
		lines := make([]string, 0, len(r.Pairs))
		for _, kv := range r.Pairs {
			lines = append(lines, kv.Label+": "+kv.Value)
		}
		return strings.Join(lines, CellSeparator)
	}
	return strings.Join(r.Items, CellSeparator)
}

// FieldStatus 字段处理状态
type FieldStatus string

const (
	FieldOK          FieldStatus = "ok"          // 提取成功
	FieldSkipped     FieldStatus = "skipped"     // URL为空,跳过
	FieldEmpty       FieldStatus = "empty"       // 所有策略均无结果
	FieldLoadFailed  FieldStatus = "load_failed" // 页面加载失败
	FieldUnavailable FieldStatus = "unavailable" // 浏览器资源不可用
)

// FieldResult 单个输出字段的处理结果
type FieldResult struct {
	Column   string      `json:"column"`
	URL      string      `json:"url,omitempty"`
	Status   FieldStatus `json:"status"`
	Strategy string      `json:"strategy,omitempty"`
	LoadPath LoadPath    `json:"load_path,omitempty"`
	Value    string      `json:"-"`
	Error    string      `json:"error,omitempty"`
}

// RowResult 单行处理结果
type RowResult struct {
	Index  int           `json:"index"`
	Fields []FieldResult `json:"fields"`
}
