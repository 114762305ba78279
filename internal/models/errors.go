package models

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	// ErrLoadFailure 页面加载失败(网络错误、导航错误、超时、验证码)
	ErrLoadFailure = errors.New("页面加载失败")

	// ErrCaptchaDetected 返回内容中检测到验证码/反爬特征
	ErrCaptchaDetected = errors.New("检测到验证码页面")

	// ErrContentTooShort 静态加载得到的文本过短,视为加载失败
	ErrContentTooShort = errors.New("页面文本内容过短")

	// ErrExtractionEmpty 所有提取策略均未返回结果
	ErrExtractionEmpty = errors.New("所有提取策略均无结果")

	// ErrResourceUnavailable 共享浏览器资源不可用(启动失败、超时或已关闭)
	ErrResourceUnavailable = errors.New("浏览器资源不可用")
)

// LoadPath 页面加载路径
type LoadPath string

const (
	PathStatic  LoadPath = "static"  // 纯HTTP请求
	PathDynamic LoadPath = "dynamic" // 无头浏览器渲染
)

// LoadError 页面加载错误
// 同时匹配 ErrLoadFailure 和底层原因
type LoadError struct {
	URL   string
	Path  LoadPath
	Cause error
}

// Error 实现error接口
func (e *LoadError) Error() string {
	return fmt.Sprintf("加载失败 [%s] (%s): %v", e.URL, e.Path, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is 使 errors.Is(err, ErrLoadFailure) 成立
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailure
}

// NewLoadError 创建加载错误
func NewLoadError(url string, path LoadPath, cause error) *LoadError {
	return &LoadError{URL: url, Path: path, Cause: cause}
}
