package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/RecoveryAshes/SheetCrawler/internal/crawlers"
	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// EnvPrefix 环境变量前缀,如 SHEETCRAWLER_CRAWL_MODE=dynamic
const EnvPrefix = "SHEETCRAWLER"

// Config 应用程序配置
type Config struct {
	Crawl    models.CrawlConfig     `mapstructure:"crawl"`
	Browser  crawlers.BrowserConfig `mapstructure:"browser"`
	Columns  ColumnsConfig          `mapstructure:"columns"`
	Headers  HeadersConfig          `mapstructure:"headers"`
	Logging  LoggingConfig          `mapstructure:"logging"`
	Output   OutputConfig           `mapstructure:"output"`
	Resource ResourceConfig         `mapstructure:"resource"`
}

// ColumnsConfig 输入URL列和输出列名称
type ColumnsConfig struct {
	GoogleURL       string `mapstructure:"google_url"`
	SearchURL       string `mapstructure:"search_url"`
	DetailURL       string `mapstructure:"detail_url"`
	GoogleHeadings  string `mapstructure:"google_headings"`
	SearchTitles    string `mapstructure:"search_titles"`
	ProductOverview string `mapstructure:"product_overview"`
	AboutItem       string `mapstructure:"about_item"`
}

// HeadersConfig HTTP头部配置
type HeadersConfig struct {
	ConfigFile string `mapstructure:"config_file"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	DebugDir      string `mapstructure:"debug_dir"`
	SaveDebugHTML bool   `mapstructure:"save_debug_html"`
	ReportDir     string `mapstructure:"report_dir"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
}

// ResourceConfig 启动浏览器前的资源检查
type ResourceConfig struct {
	SafetyReserveMemory int `mapstructure:"safety_reserve_memory"` // MB
	SafetyThreshold     int `mapstructure:"safety_threshold"`      // MB
	CPULoadThreshold    int `mapstructure:"cpu_load_threshold"`    // %, >=200 禁用
}

// LoadConfig 加载配置文件
// 优先级: 默认值 < 配置文件 < .env/环境变量 < 命令行
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Warnf("加载.env失败: %v", err)
	}

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sheetcrawler"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 未指定路径且没有找到配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量中的逗号分隔列表
	if len(config.Crawl.CaptchaPhrases) == 1 && strings.Contains(config.Crawl.CaptchaPhrases[0], ",") {
		config.Crawl.CaptchaPhrases = splitList(config.Crawl.CaptchaPhrases[0])
	}

	return &config, nil
}

// setDefaults 设置默认配置值
// AutomaticEnv只对设置过默认值的键生效,所以每个键都要有默认值
func setDefaults(v *viper.Viper) {
	d := models.DefaultCrawlConfig()

	v.SetDefault("crawl.mode", string(d.Mode))
	v.SetDefault("crawl.force_js", d.ForceJS)
	v.SetDefault("crawl.google_count", d.GoogleCount)
	v.SetDefault("crawl.search_count", d.SearchCount)
	v.SetDefault("crawl.navigation_timeout", d.NavigationTimeout)
	v.SetDefault("crawl.settle_delay", d.SettleDelay)
	v.SetDefault("crawl.startup_timeout", d.StartupTimeout)
	v.SetDefault("crawl.min_content_length", d.MinContentLength)
	v.SetDefault("crawl.requests_per_second", d.RequestsPerSecond)
	v.SetDefault("crawl.captcha_phrases", d.CaptchaPhrases)
	v.SetDefault("crawl.headless", d.Headless)

	v.SetDefault("browser.engine", crawlers.EngineRod)
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.ignore_cert_errors", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.bin_path", "")

	v.SetDefault("columns.google_url", "search_on_google_url")
	v.SetDefault("columns.search_url", "search_page_url")
	v.SetDefault("columns.detail_url", "detail_page_url")
	v.SetDefault("columns.google_headings", "Google_Headings")
	v.SetDefault("columns.search_titles", "Search_Page_Titles")
	v.SetDefault("columns.product_overview", "Product Overview")
	v.SetDefault("columns.about_item", "About This Item")

	v.SetDefault("headers.config_file", "configs/headers.yaml")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("output.debug_dir", "debug")
	v.SetDefault("output.save_debug_html", true)
	v.SetDefault("output.report_dir", "reports")
	v.SetDefault("output.checkpoint_dir", ".checkpoints")

	v.SetDefault("resource.safety_reserve_memory", 512)
	v.SetDefault("resource.safety_threshold", 300)
	v.SetDefault("resource.cpu_load_threshold", 200)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return err
	}
	switch c.Browser.Engine {
	case crawlers.EngineRod, crawlers.EngineChromedp:
	default:
		return fmt.Errorf("无效的浏览器引擎: %s (有效值: rod, chromedp)", c.Browser.Engine)
	}
	if c.Columns.GoogleURL == "" || c.Columns.SearchURL == "" || c.Columns.DetailURL == "" {
		return fmt.Errorf("URL列名不能为空")
	}
	return nil
}

// GetCrawlConfig 从配置中提取爬取配置
func (c *Config) GetCrawlConfig() models.CrawlConfig {
	return c.Crawl
}

// BrowserConfig 浏览器引擎配置,headless来自crawl.headless
func (c *Config) BrowserConfig() crawlers.BrowserConfig {
	bc := c.Browser
	bc.Headless = c.Crawl.Headless
	return bc
}

// LogConfig 转换为日志配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// ResourceMonitorConfig 转换为资源检查配置
func (c *Config) ResourceMonitorConfig() crawlers.ResourceMonitorConfig {
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMemory: int64(c.Resource.SafetyReserveMemory) * 1024 * 1024,
		SafetyThreshold:     int64(c.Resource.SafetyThreshold) * 1024 * 1024,
		CPULoadThreshold:    c.Resource.CPULoadThreshold,
	}
}

// CLIOverrides 命令行参数,只有显式设置的值会覆盖配置
type CLIOverrides struct {
	Mode              *string
	ForceJS           *bool
	GoogleCount       *int
	SearchCount       *int
	Headless          *bool
	Engine            *string
	SettleDelay       *time.Duration
	NavigationTimeout *time.Duration
	SaveDebugHTML     *bool
	LogLevel          *string
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.Mode != nil {
		c.Crawl.Mode = models.CrawlMode(*o.Mode)
	}
	if o.ForceJS != nil {
		c.Crawl.ForceJS = *o.ForceJS
	}
	if o.GoogleCount != nil {
		c.Crawl.GoogleCount = *o.GoogleCount
	}
	if o.SearchCount != nil {
		c.Crawl.SearchCount = *o.SearchCount
	}
	if o.Headless != nil {
		c.Crawl.Headless = *o.Headless
	}
	if o.Engine != nil {
		c.Browser.Engine = *o.Engine
	}
	if o.SettleDelay != nil {
		c.Crawl.SettleDelay = *o.SettleDelay
	}
	if o.NavigationTimeout != nil {
		c.Crawl.NavigationTimeout = *o.NavigationTimeout
	}
	if o.SaveDebugHTML != nil {
		c.Output.SaveDebugHTML = *o.SaveDebugHTML
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
