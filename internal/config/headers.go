// Package config 读取 headers.yaml(自定义HTTP请求头部)
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

const (
	// DefaultConfigFile 未指定路径时使用
	DefaultConfigFile = "configs/headers.yaml"

	// MaxConfigFileSize 1MB
	MaxConfigFileSize = 1 << 20
)

//go:embed headers_template.yaml
var headerTemplate string

// HeaderConfigLoader headers.yaml 加载器
// 文件不存在时写入内置模板,首次运行即可编辑
type HeaderConfigLoader struct {
	path string
}

// NewHeaderConfigLoader 创建加载器,path为空时使用 DefaultConfigFile
func NewHeaderConfigLoader(path string) *HeaderConfigLoader {
	if path == "" {
		path = DefaultConfigFile
	}
	return &HeaderConfigLoader{path: path}
}

// Path 配置文件路径
func (l *HeaderConfigLoader) Path() string {
	return l.path
}

// LoadConfig 读取并解析配置文件
// 大小超限、YAML格式错误都返回 *models.ConfigError
func (l *HeaderConfigLoader) LoadConfig() (*models.HeaderConfig, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := l.writeTemplate(); err != nil {
			return nil, err
		}
		info, err = os.Stat(l.path)
	}
	if err != nil {
		return nil, &models.ConfigError{Path: l.path, Cause: err}
	}
	if info.Size() > MaxConfigFileSize {
		return nil, &models.ConfigError{
			Path:  l.path,
			Cause: fmt.Errorf("文件大小 %d 字节超过上限 %d", info.Size(), MaxConfigFileSize),
		}
	}

	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, &models.ConfigError{Path: l.path, Cause: err}
	}

	cfg := &models.HeaderConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &models.ConfigError{Path: l.path, Cause: err}
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	return cfg, nil
}

// LoadHeaders 读取配置并转为http.Header,名称规范化
func (l *HeaderConfigLoader) LoadHeaders() (http.Header, error) {
	cfg, err := l.LoadConfig()
	if err != nil {
		return nil, err
	}

	headers := make(http.Header, len(cfg.Headers))
	for name, value := range cfg.Headers {
		headers.Set(name, value)
	}
	return headers, nil
}

func (l *HeaderConfigLoader) writeTemplate() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}
	if err := os.WriteFile(l.path, []byte(headerTemplate), 0644); err != nil {
		return fmt.Errorf("生成头部配置模板失败: %w", err)
	}
	utils.Infof("已生成头部配置模板: %s", l.path)
	return nil
}

// Template 内置模板内容
func Template() string {
	return headerTemplate
}
