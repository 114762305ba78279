package models

import (
	"fmt"
	"time"
)

// CrawlMode 页面加载模式
type CrawlMode string

const (
	ModeAuto    CrawlMode = "auto"    // 先静态,失败后回退到浏览器
	ModeStatic  CrawlMode = "static"  // 仅静态
	ModeDynamic CrawlMode = "dynamic" // 仅浏览器
)

// 结果数量上下限
const (
	MinResultCount = 1
	MaxResultCount = 20
)

// BrowserState 共享浏览器状态
type BrowserState string

const (
	BrowserUninitialized BrowserState = "uninitialized" // 未初始化
	BrowserStarting      BrowserState = "starting"      // 启动中
	BrowserReady         BrowserState = "ready"         // 可用
	BrowserFailed        BrowserState = "failed"        // 启动失败(不可恢复)
	BrowserStopped       BrowserState = "stopped"       // 已关闭
)

// RunStats 运行统计
type RunStats struct {
	TotalRows     int     `json:"total_rows"`     // 总行数
	ProcessedRows int     `json:"processed_rows"` // 已处理行数
	ResumedRows   int     `json:"resumed_rows"`   // 从检查点恢复的行数
	OKFields      int     `json:"ok_fields"`      // 成功字段数
	EmptyFields   int     `json:"empty_fields"`   // 无结果字段数
	FailedFields  int     `json:"failed_fields"`  // 加载失败字段数
	SkippedFields int     `json:"skipped_fields"` // 跳过字段数
	StaticLoads   int     `json:"static_loads"`   // 静态加载次数
	DynamicLoads  int     `json:"dynamic_loads"`  // 浏览器加载次数
	Fallbacks     int     `json:"fallbacks"`      // 静态回退到浏览器次数
	Duration      float64 `json:"duration"`       // 总耗时(秒)
}

// Record 按字段状态累加统计
func (s *RunStats) Record(f FieldResult) {
	switch f.Status {
	case FieldOK:
		s.OKFields++
	case FieldEmpty:
		s.EmptyFields++
	case FieldLoadFailed, FieldUnavailable:
		s.FailedFields++
	case FieldSkipped:
		s.SkippedFields++
	}
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	Mode              CrawlMode     `mapstructure:"mode" json:"mode"`                               // 加载模式 (默认:auto)
	ForceJS           bool          `mapstructure:"force_js" json:"force_js"`                       // 强制浏览器渲染
	GoogleCount       int           `mapstructure:"google_count" json:"google_count"`               // Google标题数量上限 (默认:5)
	SearchCount       int           `mapstructure:"search_count" json:"search_count"`               // 搜索结果标题数量上限 (默认:10)
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" json:"navigation_timeout"`   // 导航超时 (默认:30s)
	SettleDelay       time.Duration `mapstructure:"settle_delay" json:"settle_delay"`               // 导航后等待脚本执行时间 (默认:3s)
	StartupTimeout    time.Duration `mapstructure:"startup_timeout" json:"startup_timeout"`         // 浏览器启动超时 (默认:30s)
	MinContentLength  int           `mapstructure:"min_content_length" json:"min_content_length"`   // 静态加载最小文本长度 (默认:500)
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second"` // 加载速率限制,0为不限制
	CaptchaPhrases    []string      `mapstructure:"captcha_phrases" json:"captcha_phrases"`         // 验证码特征短语
	Headless          bool          `mapstructure:"headless" json:"headless"`                       // 无头模式 (默认:true)
}

// DefaultCaptchaPhrases 默认验证码特征短语(不区分大小写)
var DefaultCaptchaPhrases = []string{
	"unusual traffic",
	"not a robot",
	"enter the characters you see below",
	"verify you are human",
	"solve this captcha",
}

// DefaultCrawlConfig 默认爬取配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		Mode:              ModeAuto,
		GoogleCount:       5,
		SearchCount:       10,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       3 * time.Second,
		StartupTimeout:    30 * time.Second,
		MinContentLength:  500,
		RequestsPerSecond: 1,
		CaptchaPhrases:    append([]string(nil), DefaultCaptchaPhrases...),
		Headless:          true,
	}
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeStatic, ModeDynamic:
	default:
		return fmt.Errorf("无效的加载模式: %s (有效值: auto, static, dynamic)", c.Mode)
	}
	if c.Mode == ModeStatic && c.ForceJS {
		return fmt.Errorf("static模式下不能启用force_js")
	}
	if c.GoogleCount < MinResultCount || c.GoogleCount > MaxResultCount {
		return fmt.Errorf("Google标题数量必须在%d-%d之间,当前值: %d", MinResultCount, MaxResultCount, c.GoogleCount)
	}
	if c.SearchCount < MinResultCount || c.SearchCount > MaxResultCount {
		return fmt.Errorf("搜索标题数量必须在%d-%d之间,当前值: %d", MinResultCount, MaxResultCount, c.SearchCount)
	}
	if c.NavigationTimeout < time.Second || c.NavigationTimeout > 300*time.Second {
		return fmt.Errorf("导航超时必须在1-300秒之间,当前值: %s", c.NavigationTimeout)
	}
	if c.SettleDelay < 0 || c.SettleDelay > 60*time.Second {
		return fmt.Errorf("等待时间必须在0-60秒之间,当前值: %s", c.SettleDelay)
	}
	if c.SettleDelay >= c.NavigationTimeout {
		return fmt.Errorf("等待时间(%s)必须小于导航超时(%s)", c.SettleDelay, c.NavigationTimeout)
	}
	if c.StartupTimeout < time.Second {
		return fmt.Errorf("浏览器启动超时不能小于1秒,当前值: %s", c.StartupTimeout)
	}
	if c.MinContentLength < 0 {
		return fmt.Errorf("最小文本长度不能为负数")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("请求速率不能为负数")
	}
	return nil
}

// NeedsBrowser 配置是否必然使用浏览器
func (c *CrawlConfig) NeedsBrowser() bool {
	return c.ForceJS || c.Mode == ModeDynamic
}
