package models

import (
	"fmt"
	"net/http"
	"strings"
)

// HeaderConfig headers.yaml 的内容
// viper读取后键名为小写,使用前需规范化
type HeaderConfig struct {
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

// HeaderProvider 提供当前生效的HTTP请求头部
// 静态加载器和两种浏览器引擎都从这里取头部
type HeaderProvider interface {
	GetHeaders() (http.Header, error)
}

// CliHeaders 命令行 -H 参数,每项格式为 "Name: Value"
type CliHeaders []string

// Parse 解析为http.Header,名称按标准格式规范化
// 同名头部以最后一次出现为准
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header, len(ch))
	for i, raw := range ch {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("-H 第%d项 %q 缺少冒号,应为 'Name: Value'", i+1, raw)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("-H 第%d项 %q 头部名称为空", i+1, raw)
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

// ValidationError 单个头部未通过校验
type ValidationError struct {
	Header string // 头部名称
	Part   string // "name" 或 "value"
	Reason string
	Hint   string // 可为空
}

func (e *ValidationError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("头部 %q 的%s无效: %s", e.Header, e.partLabel(), e.Reason)
	}
	return fmt.Sprintf("头部 %q 的%s无效: %s (建议: %s)", e.Header, e.partLabel(), e.Reason, e.Hint)
}

func (e *ValidationError) partLabel() string {
	if e.Part == "value" {
		return "值"
	}
	return "名称"
}

// ConfigError 头部配置文件无法使用
type ConfigError struct {
	Path  string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("头部配置文件 %s: %v", e.Path, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
