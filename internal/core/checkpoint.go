package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// CheckpointManager 按行记录进度,中断后可从检查点恢复
type CheckpointManager struct {
	path      string
	inputFile string
	cp        *models.Checkpoint
}

// NewCheckpointManager 创建检查点管理器
// 检查点文件: <dir>/checkpoint_<输入文件名>.json
func NewCheckpointManager(dir, inputFile string) *CheckpointManager {
	m := &CheckpointManager{
		path:      filepath.Join(dir, models.CheckpointFilename(inputFile)),
		inputFile: inputFile,
	}
	m.Reset("")
	return m
}

// Path 检查点文件路径
func (m *CheckpointManager) Path() string {
	return m.path
}

// Restore 从检查点恢复已完成行的派生列,返回这些行的字段结果
// 检查点不存在时返回空。输入文件不一致、行数超出或某行URL与检查点不符时视为无效检查点
func (m *CheckpointManager) Restore(sheet *models.Sheet, derived, keys []string) ([]models.RowResult, error) {
	cp, err := models.LoadCheckpointFromFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取检查点失败: %w", err)
	}

	if cp.InputFile != m.inputFile {
		return nil, fmt.Errorf("检查点属于其他输入文件: %s", cp.InputFile)
	}
	if cp.CompletedRows != len(cp.Rows) || cp.CompletedRows > len(sheet.Rows) {
		return nil, fmt.Errorf("检查点数据不完整: completed=%d saved=%d rows=%d",
			cp.CompletedRows, len(cp.Rows), len(sheet.Rows))
	}
	for i, saved := range cp.Rows {
		if saved.Digest != models.RowDigest(sheet.Rows[i], keys) {
			return nil, fmt.Errorf("第 %d 行的URL与检查点不一致,表格可能已修改", sheet.Rows[i].Index+1)
		}
	}

	results := make([]models.RowResult, 0, len(cp.Rows))
	for i, saved := range cp.Rows {
		row := sheet.Rows[i]
		for _, column := range derived {
			row.Set(column, saved.Derived[column])
		}
		results = append(results, saved.Result)
	}

	// 沿用原检查点,继续追加
	m.cp = cp

	utils.Infof("从检查点恢复 %d 行: %s", cp.CompletedRows, m.path)
	return results, nil
}

// Record 记录一行完成,立即写入文件
// keys为URL列,用于恢复时校验表格未被修改
func (m *CheckpointManager) Record(row *models.CrawlRow, result models.RowResult, derived, keys []string) error {
	values := make(map[string]string, len(derived))
	for _, column := range derived {
		values[column] = row.Get(column)
	}

	m.cp.Rows = append(m.cp.Rows, models.CheckpointRow{
		Digest:  models.RowDigest(row, keys),
		Derived: values,
		Result:  result,
	})
	m.cp.CompletedRows = len(m.cp.Rows)
	m.cp.UpdatedAt = time.Now()

	if err := m.cp.SaveToFile(m.path); err != nil {
		return fmt.Errorf("保存检查点失败: %w", err)
	}
	return nil
}

// Reset 丢弃已有进度,从空检查点开始
func (m *CheckpointManager) Reset(runID string) {
	now := time.Now()
	m.cp = &models.Checkpoint{
		RunID:     runID,
		InputFile: m.inputFile,
		Rows:      make([]models.CheckpointRow, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Remove 运行完成后删除检查点
func (m *CheckpointManager) Remove() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
