package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SheetCrawler/internal/sheets"
)

// ValidateFlags 验证输入输出路径,返回最终的输出路径
func ValidateFlags(input, output string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("必须指定输入表格 (-i)")
	}
	if _, err := sheets.DetectFormat(input); err != nil {
		return "", err
	}
	info, err := os.Stat(input)
	if err != nil {
		return "", fmt.Errorf("无法读取输入表格: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("输入路径是目录: %s", input)
	}

	if output == "" {
		output = DefaultOutputPath(input)
	}
	if _, err := sheets.DetectFormat(output); err != nil {
		return "", err
	}
	if sameFile(input, output) {
		return "", fmt.Errorf("输出表格不能覆盖输入表格: %s", output)
	}

	return output, nil
}

// DefaultOutputPath 默认输出路径: <目录>/<文件名>_crawled.<扩展名>
func DefaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_crawled" + ext
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
