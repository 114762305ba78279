package crawlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/RecoveryAshes/SheetCrawler/internal/extractors"
	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// LoaderConfig 页面加载配置
type LoaderConfig struct {
	Mode              models.CrawlMode
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	MinContentLength  int
	RequestsPerSecond float64
	CaptchaPhrases    []string

	// 调试HTML输出
	SaveDebugHTML bool
	DebugDir      string
}

// LoaderConfigFrom 从爬取配置构造加载配置
func LoaderConfigFrom(cfg models.CrawlConfig, saveDebugHTML bool, debugDir string) LoaderConfig {
	return LoaderConfig{
		Mode:              cfg.Mode,
		NavigationTimeout: cfg.NavigationTimeout,
		SettleDelay:       cfg.SettleDelay,
		MinContentLength:  cfg.MinContentLength,
		RequestsPerSecond: cfg.RequestsPerSecond,
		CaptchaPhrases:    cfg.CaptchaPhrases,
		SaveDebugHTML:     saveDebugHTML,
		DebugDir:          debugDir,
	}
}

// PageResult 页面加载结果
type PageResult struct {
	URL      string
	HTML     string
	Document *goquery.Document
	Path     models.LoadPath
	FellBack bool // 静态加载失败后由浏览器加载
}

// PageLoader 页面加载器
// 先尝试静态加载,内容过短、状态码错误或出现验证码时回退到浏览器(仅一次)
type PageLoader struct {
	config  LoaderConfig
	static  *StaticFetcher
	gate    *BrowserGate
	captcha *CaptchaDetector
	limiter *rate.Limiter
}

// NewPageLoader 创建页面加载器
// static在dynamic模式下可为nil,gate在static模式下可为nil
func NewPageLoader(config LoaderConfig, static *StaticFetcher, gate *BrowserGate) *PageLoader {
	if config.NavigationTimeout <= 0 {
		config.NavigationTimeout = 30 * time.Second
	}
	if config.DebugDir == "" {
		config.DebugDir = "debug"
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &PageLoader{
		config:  config,
		static:  static,
		gate:    gate,
		captcha: NewCaptchaDetector(config.CaptchaPhrases),
		limiter: limiter,
	}
}

// Load 加载页面
//
// 返回的错误:
//   - *models.LoadError: 加载失败(匹配 models.ErrLoadFailure)
//   - models.ErrResourceUnavailable: 浏览器不可用,调用方应终止运行
//   - ctx错误: 运行被取消
func (l *PageLoader) Load(ctx context.Context, pageURL string, forceJS bool) (*PageResult, error) {
	if err := models.ValidateURL(pageURL); err != nil {
		return nil, models.NewLoadError(pageURL, models.PathStatic, err)
	}
	if forceJS || l.config.Mode == models.ModeDynamic || l.static == nil {
		return l.loadDynamic(ctx, pageURL)
	}

	result, err := l.loadStatic(ctx, pageURL)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil || l.config.Mode == models.ModeStatic || l.gate == nil {
		return nil, err
	}

	utils.Debugf("静态加载失败,回退到浏览器 [%s]: %v", pageURL, err)
	result, err = l.loadDynamic(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	result.FellBack = true
	return result, nil
}

// loadStatic 静态加载并检查内容是否可用
func (l *PageLoader) loadStatic(ctx context.Context, pageURL string) (*PageResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := l.static.Fetch(ctx, pageURL)
	if err != nil {
		return nil, models.NewLoadError(pageURL, models.PathStatic, err)
	}

	if err := l.checkCaptcha(pageURL, resp.HTML); err != nil {
		return nil, models.NewLoadError(pageURL, models.PathStatic, err)
	}

	doc, err := extractors.ParseHTML(resp.HTML)
	if err != nil {
		return nil, models.NewLoadError(pageURL, models.PathStatic, fmt.Errorf("解析HTML失败: %w", err))
	}

	if n := extractors.VisibleTextLength(doc); n < l.config.MinContentLength {
		return nil, models.NewLoadError(pageURL, models.PathStatic,
			fmt.Errorf("%w: %d < %d", models.ErrContentTooShort, n, l.config.MinContentLength))
	}

	return &PageResult{
		URL:      pageURL,
		HTML:     resp.HTML,
		Document: doc,
		Path:     models.PathStatic,
	}, nil
}

// loadDynamic 通过共享浏览器加载
func (l *PageLoader) loadDynamic(ctx context.Context, pageURL string) (*PageResult, error) {
	if l.gate == nil {
		return nil, fmt.Errorf("%w: 未配置浏览器", models.ErrResourceUnavailable)
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	browser, release, err := l.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	navCtx, cancel := context.WithTimeout(ctx, l.config.NavigationTimeout)
	defer cancel()

	html, err := browser.Render(navCtx, pageURL, l.config.SettleDelay)
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("导航超时(%s): %w", l.config.NavigationTimeout, err)
		}
		return nil, models.NewLoadError(pageURL, models.PathDynamic, err)
	}

	if err := l.checkCaptcha(pageURL, html); err != nil {
		return nil, models.NewLoadError(pageURL, models.PathDynamic, err)
	}

	doc, err := extractors.ParseHTML(html)
	if err != nil {
		return nil, models.NewLoadError(pageURL, models.PathDynamic, fmt.Errorf("解析HTML失败: %w", err))
	}

	return &PageResult{
		URL:      pageURL,
		HTML:     html,
		Document: doc,
		Path:     models.PathDynamic,
	}, nil
}

// checkCaptcha 检测验证码页面,命中时按配置保存HTML
func (l *PageLoader) checkCaptcha(pageURL, html string) error {
	phrase, found := l.captcha.Detect(html)
	if !found {
		return nil
	}

	utils.Warnf("检测到验证码页面 [%s]: 命中 %q", pageURL, phrase)
	if path, err := l.SaveDebugHTML("captcha", pageURL, html); err != nil {
		utils.Warnf("保存调试HTML失败: %v", err)
	} else if path != "" {
		utils.Infof("验证码页面已保存: %s", path)
	}
	return fmt.Errorf("%w: %q", models.ErrCaptchaDetected, phrase)
}

// SaveDebugHTML 保存页面源码用于离线排查
// 未开启时返回空路径。文件名: <reason>_<host>_<id>.html
func (l *PageLoader) SaveDebugHTML(reason, pageURL, html string) (string, error) {
	if !l.config.SaveDebugHTML || html == "" {
		return "", nil
	}

	host := "unknown"
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = utils.SanitizeFilename(u.Host)
	}

	if err := os.MkdirAll(l.config.DebugDir, 0755); err != nil {
		return "", fmt.Errorf("创建调试目录失败: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.html", reason, host, models.ShortID())
	path := filepath.Join(l.config.DebugDir, name)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("写入调试HTML失败: %w", err)
	}
	return path, nil
}

// String 用于日志
func (r *PageResult) String() string {
	if r == nil {
		return "<nil>"
	}
	via := string(r.Path)
	if r.FellBack {
		via += "(fallback)"
	}
	return strings.Join([]string{r.URL, via}, " via ")
}
