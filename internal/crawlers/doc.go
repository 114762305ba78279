// Package crawlers 提供页面加载功能
//
// # 概述
//
// crawlers包负责把URL变成可供提取的HTML文档。支持两条加载路径:
// 静态加载(Colly,不执行脚本)和浏览器加载(go-rod或chromedp,执行脚本后读取DOM)。
//
// # 核心组件
//
// ## PageLoader
//
// 决定加载路径。默认先静态加载,以下情况回退到浏览器(仅一次):
//   - 网络错误或非2xx状态码
//   - 可见文本长度低于 min_content_length
//   - 命中验证码特征短语
//
// force_js 或 dynamic 模式直接走浏览器,static 模式从不回退。
//
//	loader := NewPageLoader(LoaderConfigFrom(cfg, true, "debug"), static, gate)
//	page, err := loader.Load(ctx, "https://example.com/item", false)
//
// ## BrowserGate
//
// 共享浏览器的单槽闸门,状态机:
//
//	uninitialized → starting → ready
//	                         ↘ failed
//	任意状态 → stopped (Stop)
//
// 启动超时或失败后进入failed,之后的Acquire都返回 models.ErrResourceUnavailable。
//
//	browser, release, err := gate.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
//
// ## StaticFetcher
//
// 基于Colly的同步HTTP加载,共享Cookie容器(publicsuffix),
// 自动解压 gzip/deflate/br 响应体。
//
// ## ResourceMonitor
//
// 启动浏览器前用gopsutil检查可用内存和CPU负载。
//
// # 错误
//
// 加载失败返回 *models.LoadError(匹配 models.ErrLoadFailure),
// 浏览器不可用返回 models.ErrResourceUnavailable,调用方应终止整个运行。
package crawlers
