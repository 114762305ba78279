package crawlers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

// fakeBrowser 记录并发渲染数的测试浏览器
type fakeBrowser struct {
	html   string
	delay  time.Duration
	render func(ctx context.Context, url string) (string, error)

	active    int32
	maxActive int32
	renders   int32
	closed    int32
}

func (b *fakeBrowser) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	n := atomic.AddInt32(&b.active, 1)
	defer atomic.AddInt32(&b.active, -1)
	for {
		max := atomic.LoadInt32(&b.maxActive)
		if n <= max || atomic.CompareAndSwapInt32(&b.maxActive, max, n) {
			break
		}
	}
	atomic.AddInt32(&b.renders, 1)

	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.render != nil {
		return b.render(ctx, url)
	}
	return b.html, nil
}

func (b *fakeBrowser) Close() error {
	atomic.AddInt32(&b.closed, 1)
	return nil
}

// fakeLauncher 返回固定浏览器并计数启动次数
func fakeLauncher(b Browser, launches *int32) BrowserLauncher {
	return func(ctx context.Context) (Browser, error) {
		atomic.AddInt32(launches, 1)
		return b, nil
	}
}

func TestBrowserGate_MutualExclusion(t *testing.T) {
	browser := &fakeBrowser{html: "<html></html>", delay: 5 * time.Millisecond}
	var launches int32
	gate := NewBrowserGate(fakeLauncher(browser, &launches), time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, release, err := gate.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			_, _ = b.Render(context.Background(), "http://x", 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&browser.maxActive), "同一时刻最多一个持有者")
	assert.Equal(t, int32(10), atomic.LoadInt32(&browser.renders))
	assert.Equal(t, int32(1), atomic.LoadInt32(&launches), "浏览器只启动一次")
	assert.Equal(t, models.BrowserReady, gate.State())
}

func TestBrowserGate_StartupTimeout(t *testing.T) {
	late := &fakeBrowser{}
	launcher := func(ctx context.Context) (Browser, error) {
		time.Sleep(200 * time.Millisecond)
		return late, nil
	}
	gate := NewBrowserGate(launcher, 50*time.Millisecond, nil)

	err := gate.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrResourceUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, models.BrowserFailed, gate.State())

	// 超时后不会再变为Ready
	_, _, err = gate.Acquire(context.Background())
	assert.True(t, errors.Is(err, models.ErrResourceUnavailable))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&late.closed) == 1
	}, 2*time.Second, 10*time.Millisecond, "迟到的浏览器应被关闭")
	assert.Equal(t, models.BrowserFailed, gate.State())
}

func TestBrowserGate_LaunchErrorIsPermanent(t *testing.T) {
	var launches int32
	boom := errors.New("chrome not found")
	launcher := func(ctx context.Context) (Browser, error) {
		atomic.AddInt32(&launches, 1)
		return nil, boom
	}
	gate := NewBrowserGate(launcher, time.Second, nil)

	for i := 0; i < 3; i++ {
		_, _, err := gate.Acquire(context.Background())
		assert.True(t, errors.Is(err, models.ErrResourceUnavailable))
		assert.True(t, errors.Is(err, boom))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&launches))
}

func TestBrowserGate_ConcurrentStartWaitsForFirst(t *testing.T) {
	browser := &fakeBrowser{}
	var launches int32
	launcher := func(ctx context.Context) (Browser, error) {
		atomic.AddInt32(&launches, 1)
		time.Sleep(50 * time.Millisecond)
		return browser, nil
	}
	gate := NewBrowserGate(launcher, time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, gate.Start(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&launches))
	assert.Equal(t, models.BrowserReady, gate.State())
}

func TestBrowserGate_ReleaseIsIdempotent(t *testing.T) {
	var launches int32
	gate := NewBrowserGate(fakeLauncher(&fakeBrowser{}, &launches), time.Second, nil)

	_, release, err := gate.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, release2, err := gate.Acquire(ctx)
	require.NoError(t, err)
	release2()

	// 重复release不会多释放出一个槽位
	_, release3, err := gate.Acquire(ctx)
	require.NoError(t, err)
	defer release3()

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	_, _, err = gate.Acquire(short)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBrowserGate_Stop(t *testing.T) {
	browser := &fakeBrowser{}
	var launches int32
	gate := NewBrowserGate(fakeLauncher(browser, &launches), time.Second, nil)

	require.NoError(t, gate.Start(context.Background()))
	require.NoError(t, gate.Stop())
	require.NoError(t, gate.Stop())

	assert.Equal(t, int32(1), atomic.LoadInt32(&browser.closed))
	assert.Equal(t, models.BrowserStopped, gate.State())

	_, _, err := gate.Acquire(context.Background())
	assert.True(t, errors.Is(err, models.ErrResourceUnavailable))
}

func TestBrowserGate_InsufficientResources(t *testing.T) {
	var launches int32
	monitor := NewResourceMonitor(ResourceMonitorConfig{
		SafetyThreshold:  500 * 1024 * 1024,
		CPULoadThreshold: 200,
	})
	monitor.availableMemory = func() (uint64, error) { return 100 * 1024 * 1024, nil }

	gate := NewBrowserGate(fakeLauncher(&fakeBrowser{}, &launches), time.Second, monitor)
	err := gate.Start(context.Background())

	assert.True(t, errors.Is(err, models.ErrResourceUnavailable))
	assert.Equal(t, int32(0), atomic.LoadInt32(&launches), "资源不足时不应启动浏览器")
	assert.Equal(t, models.BrowserFailed, gate.State())
}

func TestResourceMonitor(t *testing.T) {
	monitor := NewResourceMonitor(ResourceMonitorConfig{
		SafetyReserveMemory: 100 * 1024 * 1024,
		SafetyThreshold:     200 * 1024 * 1024,
		CPULoadThreshold:    80,
	})
	monitor.availableMemory = func() (uint64, error) { return 1024 * 1024 * 1024, nil }
	monitor.cpuUsage = func() (float64, error) { return 95, nil }

	ok, reason := monitor.CheckResourceAvailability()
	assert.False(t, ok)
	assert.Contains(t, reason, "CPU")

	monitor.cpuUsage = func() (float64, error) { return 10, nil }
	ok, _ = monitor.CheckResourceAvailability()
	assert.True(t, ok)

	status := monitor.GetMemoryStatus()
	assert.Equal(t, int64(924*1024*1024), status.AvailableMemory)
	assert.Equal(t, "normal", status.MemoryPressure)

	monitor.availableMemory = func() (uint64, error) { return 0, errors.New("unsupported") }
	ok, _ = monitor.CheckResourceAvailability()
	assert.True(t, ok, "采样失败不阻止启动")
	assert.Equal(t, "unknown", monitor.GetMemoryStatus().MemoryPressure)
}
