package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// StaticFetcherConfig 静态加载配置
type StaticFetcherConfig struct {
	Timeout          time.Duration // 单次请求超时
	IgnoreCertErrors bool          // 跳过TLS证书验证
}

// StaticResponse 静态加载结果
type StaticResponse struct {
	URL        string // 最终URL(跟随重定向后)
	StatusCode int
	HTML       string // 已解压的页面源码
}

// StaticFetcher 静态加载器(使用Colly)
// 不执行页面脚本,只获取服务器返回的HTML
type StaticFetcher struct {
	collector *colly.Collector
	timeout   time.Duration

	// HTTP头部提供者
	headerProvider models.HeaderProvider
}

// NewStaticFetcher 创建静态加载器
func NewStaticFetcher(config StaticFetcherConfig, headerProvider models.HeaderProvider) (*StaticFetcher, error) {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	// Cookie在同一次运行的所有请求间共享,按公共后缀划分域
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("创建Cookie容器失败: %w", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: config.IgnoreCertErrors,
			},
			Proxy: http.ProxyFromEnvironment,
		},
		Timeout: config.Timeout,
		Jar:     jar,
	}
	if config.IgnoreCertErrors {
		utils.Debugf("静态加载器: TLS证书验证已禁用")
	}

	// 同步模式,允许重复访问同一URL(同一商品可能出现在多行)
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	c.SetClient(httpClient)
	c.SetCookieJar(jar)
	c.SetRequestTimeout(config.Timeout)

	utils.Debugf("静态加载器: HTTP超时设置为 %s", config.Timeout)

	return &StaticFetcher{
		collector:      c,
		timeout:        config.Timeout,
		headerProvider: headerProvider,
	}, nil
}

// Fetch 获取页面HTML
// 非2xx状态码和网络错误都作为错误返回
func (sf *StaticFetcher) Fetch(ctx context.Context, pageURL string) (*StaticResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 每次请求使用独立的回调,HTTP客户端和Cookie共享
	c := sf.collector.Clone()

	var (
		resp     *StaticResponse
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		sf.applyHeaders(r)
		utils.Debugf("静态加载: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		body := r.Body
		if r.Headers != nil {
			if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
				decompressed, err := decompressResponse(encoding, r.Body)
				if err != nil {
					utils.Warnf("解压响应失败 [%s] (编码=%s): %v", r.Request.URL, encoding, err)
				} else {
					body = decompressed
				}
			}
		}

		resp = &StaticResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			HTML:       string(body),
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("HTTP状态码 %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if fetchErr != nil {
			return nil, fetchErr
		}
		if err != nil {
			return nil, err
		}
	}

	if resp == nil {
		return nil, fmt.Errorf("未收到响应: %s", pageURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP状态码 %d", resp.StatusCode)
	}
	return resp, nil
}

// applyHeaders 应用自定义HTTP头部
func (sf *StaticFetcher) applyHeaders(r *colly.Request) {
	if sf.headerProvider == nil {
		return
	}
	headers, err := sf.headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return
	}
	for name, values := range headers {
		if len(values) > 0 {
			r.Headers.Set(name, values[0])
		}
	}
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
// Colly已自动解压gzip,此时body不再带gzip魔数,直接返回
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
