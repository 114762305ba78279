package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

// Reporter 报告生成器
type Reporter struct {
	reportDir string
}

// NewReporter 创建报告生成器
func NewReporter(reportDir string) *Reporter {
	return &Reporter{reportDir: reportDir}
}

// GenerateReport 生成运行报告
// 输出 run_report_<输入文件名>.json 和 failed_fields_<输入文件名>.json
func (r *Reporter) GenerateReport(report *models.RunReport) (string, error) {
	if err := os.MkdirAll(r.reportDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	base := filepath.Base(report.InputFile)
	base = SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))

	mainPath, err := r.saveJSONReport(fmt.Sprintf("run_report_%s.json", base), report)
	if err != nil {
		return "", err
	}

	if _, err := r.saveJSONReport(fmt.Sprintf("failed_fields_%s.json", base), report.FailedFields()); err != nil {
		return "", err
	}

	Infof("✅ 报告已生成: %s", mainPath)
	return mainPath, nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(filename string, data interface{}) (string, error) {
	path := filepath.Join(r.reportDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// PrintSummary 在日志中输出运行摘要
func PrintSummary(report *models.RunReport) {
	s := report.Stats
	Infof("处理行数: %d/%d (从检查点恢复 %d 行)", s.ProcessedRows, s.TotalRows, s.ResumedRows)
	Infof("字段: 成功 %d, 无结果 %d, 失败 %d, 跳过 %d", s.OKFields, s.EmptyFields, s.FailedFields, s.SkippedFields)
	Infof("加载: 静态 %d, 浏览器 %d, 回退 %d", s.StaticLoads, s.DynamicLoads, s.Fallbacks)
	Infof("总耗时: %.2f秒", s.Duration)
	if report.FatalError != "" {
		Warnf("运行提前终止: %s", report.FatalError)
	}
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
