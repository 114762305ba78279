package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// Browser 共享浏览器实例
type Browser interface {
	// Render 打开URL,等待settle后返回渲染后的完整HTML
	Render(ctx context.Context, url string, settle time.Duration) (string, error)

	// Close 关闭浏览器进程
	Close() error
}

// BrowserLauncher 浏览器启动函数
type BrowserLauncher func(ctx context.Context) (Browser, error)

// errGateStopped 浏览器已关闭
var errGateStopped = errors.New("浏览器已关闭")

// BrowserGate 共享浏览器的单槽闸门
//
// 同一时刻最多一个持有者使用浏览器。浏览器在首次Acquire时启动,
// 启动超时或失败后进入Failed状态,之后所有Start/Acquire都返回
// models.ErrResourceUnavailable。
type BrowserGate struct {
	launcher       BrowserLauncher
	startupTimeout time.Duration
	monitor        *ResourceMonitor

	// slot 容量为1的信号量
	slot chan struct{}

	mu       sync.Mutex
	state    models.BrowserState
	browser  Browser
	failure  error
	starting chan struct{} // 启动结束时关闭
}

// NewBrowserGate 创建闸门,monitor可为nil
func NewBrowserGate(launcher BrowserLauncher, startupTimeout time.Duration, monitor *ResourceMonitor) *BrowserGate {
	if startupTimeout <= 0 {
		startupTimeout = 30 * time.Second
	}
	return &BrowserGate{
		launcher:       launcher,
		startupTimeout: startupTimeout,
		monitor:        monitor,
		slot:           make(chan struct{}, 1),
		state:          models.BrowserUninitialized,
	}
}

// State 当前状态
func (g *BrowserGate) State() models.BrowserState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Start 启动浏览器(幂等)
// 并发调用者等待第一次启动的结果
func (g *BrowserGate) Start(ctx context.Context) error {
	g.mu.Lock()
	switch g.state {
	case models.BrowserReady:
		g.mu.Unlock()
		return nil

	case models.BrowserFailed, models.BrowserStopped:
		err := g.unavailableLocked()
		g.mu.Unlock()
		return err

	case models.BrowserStarting:
		ch := g.starting
		g.mu.Unlock()
		select {
		case <-ch:
			return g.Start(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Uninitialized: 由当前调用者负责启动
	g.state = models.BrowserStarting
	ch := make(chan struct{})
	g.starting = ch
	g.mu.Unlock()

	utils.Infof("正在启动浏览器(超时 %s)", g.startupTimeout)
	browser, err := g.launch(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	defer close(ch)

	if g.state == models.BrowserStopped {
		// 启动期间被关闭
		if browser != nil {
			_ = browser.Close()
		}
		return g.unavailableLocked()
	}

	if err != nil {
		g.state = models.BrowserFailed
		g.failure = err
		utils.Errorf("浏览器启动失败: %v", err)
		return g.unavailableLocked()
	}

	g.state = models.BrowserReady
	g.browser = browser
	utils.Infof("浏览器已就绪")
	return nil
}

// launch 检查资源并在启动超时内启动浏览器
// 超时后迟到的浏览器会在后台关闭
func (g *BrowserGate) launch(ctx context.Context) (Browser, error) {
	if g.monitor != nil {
		if ok, reason := g.monitor.CheckResourceAvailability(); !ok {
			return nil, fmt.Errorf("系统资源不足: %s", reason)
		}
		status := g.monitor.GetMemoryStatus()
		utils.Debugf("内存状态: %s, 可用 %dMB", status.MemoryPressure, status.AvailableMemory/(1024*1024))
	}

	startCtx, cancel := context.WithTimeout(ctx, g.startupTimeout)
	defer cancel()

	type outcome struct {
		browser Browser
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		b, err := g.launcher(startCtx)
		done <- outcome{browser: b, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if o.browser != nil {
				_ = o.browser.Close()
			}
			return nil, fmt.Errorf("启动浏览器失败: %w", o.err)
		}
		if o.browser == nil {
			return nil, fmt.Errorf("启动浏览器失败: 未返回浏览器实例")
		}
		return o.browser, nil

	case <-startCtx.Done():
		go func() {
			if o := <-done; o.browser != nil {
				utils.Debugf("关闭超时后才启动完成的浏览器")
				_ = o.browser.Close()
			}
		}()
		return nil, fmt.Errorf("浏览器启动超时(%s): %w", g.startupTimeout, startCtx.Err())
	}
}

// Acquire 获取浏览器的独占使用权
// 未初始化时先启动。返回的release可重复调用,调用方必须defer release()
func (g *BrowserGate) Acquire(ctx context.Context) (Browser, func(), error) {
	if err := g.Start(ctx); err != nil {
		return nil, nil, err
	}

	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	g.mu.Lock()
	state, browser := g.state, g.browser
	var err error
	if state != models.BrowserReady {
		err = g.unavailableLocked()
	}
	g.mu.Unlock()

	if err != nil {
		<-g.slot
		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() { <-g.slot })
	}
	return browser, release, nil
}

// Stop 无条件关闭浏览器,不等待正在进行的渲染
func (g *BrowserGate) Stop() error {
	g.mu.Lock()
	browser := g.browser
	g.browser = nil
	g.state = models.BrowserStopped
	g.mu.Unlock()

	if browser == nil {
		return nil
	}
	if err := browser.Close(); err != nil {
		utils.Warnf("关闭浏览器失败: %v", err)
		return err
	}
	utils.Debugf("浏览器已关闭")
	return nil
}

// unavailableLocked 构造资源不可用错误,调用方需持有mu
func (g *BrowserGate) unavailableLocked() error {
	if g.state == models.BrowserStopped {
		return fmt.Errorf("%w: %w", models.ErrResourceUnavailable, errGateStopped)
	}
	if g.failure != nil {
		return fmt.Errorf("%w: %w", models.ErrResourceUnavailable, g.failure)
	}
	return models.ErrResourceUnavailable
}
