package crawlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// BrowserConfig 浏览器引擎配置
type BrowserConfig struct {
	Engine           string `mapstructure:"engine"`             // rod | chromedp
	Headless         bool   `mapstructure:"-"`                  // 无头模式,取自crawl.headless
	Stealth          bool   `mapstructure:"stealth"`            // 注入反检测脚本
	IgnoreCertErrors bool   `mapstructure:"ignore_cert_errors"` // 忽略证书错误
	NoSandbox        bool   `mapstructure:"no_sandbox"`         // 以root运行时需要
	BinPath          string `mapstructure:"bin_path"`           // 浏览器路径,为空时自动查找
}

// 浏览器引擎名称
const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"
)

// NewLauncher 按引擎名称创建启动函数
func NewLauncher(config BrowserConfig, headerProvider models.HeaderProvider) (BrowserLauncher, error) {
	switch config.Engine {
	case "", EngineRod:
		return NewRodLauncher(config, headerProvider), nil
	case EngineChromedp:
		return NewChromedpLauncher(config, headerProvider), nil
	default:
		return nil, fmt.Errorf("未知的浏览器引擎: %s (有效值: rod, chromedp)", config.Engine)
	}
}

// RodBrowser 基于go-rod的浏览器
type RodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	stealth  bool
	headers  []string // SetExtraHeaders 使用的 name, value 交替列表
}

// NewRodLauncher 创建rod启动函数
// 浏览器进程不绑定ctx,启动超时由闸门控制
func NewRodLauncher(config BrowserConfig, headerProvider models.HeaderProvider) BrowserLauncher {
	return func(ctx context.Context) (Browser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l := launcher.New().Headless(config.Headless)
		if config.BinPath != "" {
			l = l.Bin(config.BinPath)
		}
		if config.IgnoreCertErrors {
			l = l.Set("ignore-certificate-errors")
			utils.Debugf("浏览器启动参数: --ignore-certificate-errors")
		}
		if config.NoSandbox {
			l = l.NoSandbox(true)
		}

		controlURL, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("启动浏览器进程失败: %w", err)
		}

		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			l.Kill()
			return nil, fmt.Errorf("连接浏览器失败: %w", err)
		}
		utils.Debugf("浏览器已启动: %s", controlURL)

		return &RodBrowser{
			browser:  browser,
			launcher: l,
			stealth:  config.Stealth,
			headers:  headerDict(headerProvider),
		}, nil
	}
}

// Render 在新标签页中渲染URL
func (rb *RodBrowser) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	page, err := rb.newPage()
	if err != nil {
		return "", fmt.Errorf("创建标签页失败: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			utils.Debugf("关闭标签页失败: %v", closeErr)
		}
	}()

	p := page.Context(ctx)

	if len(rb.headers) > 0 {
		cleanup, err := p.SetExtraHeaders(rb.headers)
		if err != nil {
			utils.Warnf("设置HTTP头部失败: %v", err)
		} else {
			defer cleanup()
		}
	}

	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("导航失败: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("等待页面加载失败: %w", err)
	}

	// 等待页面脚本执行
	if err := sleepContext(ctx, settle); err != nil {
		return "", err
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("读取页面HTML失败: %w", err)
	}
	return html, nil
}

// newPage 创建标签页,开启stealth时注入反检测脚本
func (rb *RodBrowser) newPage() (*rod.Page, error) {
	if rb.stealth {
		return stealth.Page(rb.browser)
	}
	return rb.browser.Page(proto.TargetCreateTarget{})
}

// Close 关闭浏览器并清理用户数据目录
func (rb *RodBrowser) Close() error {
	err := rb.browser.Close()
	if rb.launcher != nil {
		rb.launcher.Kill()
		rb.launcher.Cleanup()
	}
	return err
}

// headerDict 将头部转换为 name, value 交替列表
func headerDict(headerProvider models.HeaderProvider) []string {
	if headerProvider == nil {
		return nil
	}
	headers, err := headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return nil
	}

	dict := make([]string, 0, len(headers)*2)
	for name, values := range headers {
		if len(values) > 0 {
			dict = append(dict, name, values[0])
		}
	}
	return dict
}

// sleepContext 等待d或ctx结束
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
