package models

import (
	"encoding/json"
	"time"
)

// RunReport 一次运行的报告
type RunReport struct {
	// 任务信息
	RunID      string    `json:"run_id"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file"`
	Mode       CrawlMode `json:"mode"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// 统计信息
	Stats RunStats `json:"stats"`

	// 每行的字段结果
	Rows []RowResult `json:"rows"`

	// 致命错误(如浏览器启动失败)
	FatalError string `json:"fatal_error,omitempty"`

	// 配置快照
	Config CrawlConfig `json:"config"`
}

// FailedFields 返回所有加载失败或无结果的字段
func (r *RunReport) FailedFields() []FailedFieldInfo {
	result := make([]FailedFieldInfo, 0)
	for _, row := range r.Rows {
		for _, f := range row.Fields {
			if f.Status == FieldLoadFailed || f.Status == FieldEmpty || f.Status == FieldUnavailable {
				result = append(result, FailedFieldInfo{
					Row:    row.Index,
					Column: f.Column,
					URL:    f.URL,
					Status: f.Status,
					Error:  f.Error,
				})
			}
		}
	}
	return result
}

// FailedFieldInfo 失败字段信息
type FailedFieldInfo struct {
	Row    int         `json:"row"`
	Column string      `json:"column"`
	URL    string      `json:"url"`
	Status FieldStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
