package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Checkpoint 检查点
// 记录已完成行的派生列和字段结果,用于中断后恢复
type Checkpoint struct {
	// 任务信息
	RunID     string `json:"run_id"`     // 创建检查点的运行ID
	InputFile string `json:"input_file"` // 输入文件

	// 进度信息
	CompletedRows int             `json:"completed_rows"` // 已完成行数(按输入顺序)
	Rows          []CheckpointRow `json:"rows"`           // 每个已完成行

	// 时间戳
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckpointRow 一个已完成行
type CheckpointRow struct {
	Digest  string            `json:"digest"`  // URL列摘要,恢复时与当前表格比对
	Derived map[string]string `json:"derived"` // 派生列
	Result  RowResult         `json:"result"`  // 字段处理结果
}

// RowDigest 按给定列的URL计算行摘要
// 表格被编辑(行增删、URL修改)后同一位置的摘要不再一致
func RowDigest(row *CrawlRow, columns []string) string {
	var b strings.Builder
	for _, column := range columns {
		b.WriteString(row.URL(column))
		b.WriteByte(0x1f)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String())).String()
}

// CheckpointFilename 根据输入文件生成检查点文件名
func CheckpointFilename(inputFile string) string {
	base := filepath.Base(inputFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("checkpoint_%s.json", base)
}

// ToJSON 序列化为JSON
func (c *Checkpoint) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// FromJSON 从JSON反序列化
func (c *Checkpoint) FromJSON(data []byte) error {
	return json.Unmarshal(data, c)
}

// SaveToFile 保存到文件
func (c *Checkpoint) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// 先写临时文件再重命名,避免中断时留下半个文件
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadCheckpointFromFile 从文件加载
func LoadCheckpointFromFile(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := cp.FromJSON(data); err != nil {
		return nil, err
	}

	return &cp, nil
}
