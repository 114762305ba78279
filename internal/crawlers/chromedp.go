package crawlers

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// ChromedpBrowser 基于chromedp的浏览器
type ChromedpBrowser struct {
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
	headers     network.Headers
}

// NewChromedpLauncher 创建chromedp启动函数
func NewChromedpLauncher(config BrowserConfig, headerProvider models.HeaderProvider) BrowserLauncher {
	return func(ctx context.Context) (Browser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", config.Headless),
		)
		if config.IgnoreCertErrors {
			opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
		}
		if config.NoSandbox {
			opts = append(opts, chromedp.NoSandbox)
		}
		if config.BinPath != "" {
			opts = append(opts, chromedp.ExecPath(config.BinPath))
		}

		// 浏览器生命周期独立于启动ctx
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, cancel := chromedp.NewContext(allocCtx)

		// 空Run会启动浏览器进程
		if err := chromedp.Run(browserCtx); err != nil {
			cancel()
			allocCancel()
			return nil, fmt.Errorf("启动浏览器进程失败: %w", err)
		}
		utils.Debugf("chromedp浏览器已启动")

		headers := make(network.Headers)
		dict := headerDict(headerProvider)
		for i := 0; i+1 < len(dict); i += 2 {
			headers[dict[i]] = dict[i+1]
		}

		return &ChromedpBrowser{
			allocCancel: allocCancel,
			browserCtx:  browserCtx,
			cancel:      cancel,
			headers:     headers,
		}, nil
	}
}

// Render 在新标签页中渲染URL
func (cb *ChromedpBrowser) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	tabCtx, cancel := chromedp.NewContext(cb.browserCtx)
	defer cancel()

	// 调用方取消或超时时关闭标签页
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{network.Enable()}
	if len(cb.headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(cb.headers))
	}

	var html string
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("渲染页面失败: %w", ctx.Err())
		}
		return "", fmt.Errorf("渲染页面失败: %w", err)
	}
	return html, nil
}

// Close 关闭浏览器
func (cb *ChromedpBrowser) Close() error {
	err := chromedp.Cancel(cb.browserCtx)
	cb.cancel()
	cb.allocCancel()
	return err
}
