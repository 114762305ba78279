package core

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/RecoveryAshes/SheetCrawler/internal/config"
	"github.com/RecoveryAshes/SheetCrawler/internal/models"
	"github.com/RecoveryAshes/SheetCrawler/internal/utils"
)

// DefaultUserAgent 桌面Chrome的User-Agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// headerLayer 一层头部来源
type headerLayer struct {
	source  string
	headers http.Header
}

// HeaderManager 合并三层头部: 内置默认 < headers.yaml < 命令行
// 实现 models.HeaderProvider,静态加载和浏览器加载共用一份结果
type HeaderManager struct {
	defaults http.Header
	file     http.Header
	cli      http.Header

	loader    *config.HeaderConfigLoader
	validator *utils.HeaderValidator
	redactor  *utils.HeaderRedactor

	mu         sync.Mutex
	fileLoaded bool
	merged     http.Header
}

// NewHeaderManager 创建头部管理器,命令行头部格式错误时返回错误
// configFile为空时使用 configs/headers.yaml
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		defaults: http.Header{
			"User-Agent":      {DefaultUserAgent},
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.9"},
			"Accept-Encoding": {"gzip, deflate, br"},
		},
		file:      make(http.Header),
		cli:       cli,
		loader:    config.NewHeaderConfigLoader(configFile),
		validator: utils.NewHeaderValidator(),
		redactor:  utils.NewHeaderRedactor(),
	}, nil
}

func (hm *HeaderManager) layers() []headerLayer {
	return []headerLayer{
		{"默认", hm.defaults},
		{"配置文件", hm.file},
		{"命令行", hm.cli},
	}
}

// LoadConfig 读取headers.yaml,只读取一次
func (hm *HeaderManager) LoadConfig() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.loadFileLocked()
}

func (hm *HeaderManager) loadFileLocked() error {
	if hm.fileLoaded {
		return nil
	}

	headers, err := hm.loader.LoadHeaders()
	if err != nil {
		return fmt.Errorf("加载HTTP头部配置失败: %w", err)
	}
	hm.file = headers
	hm.fileLoaded = true

	if len(headers) > 0 {
		utils.Debugf("从 %s 加载 %d 个头部: %s", hm.loader.Path(), len(headers), hm.redactor.RedactToString(headers))
	}
	return nil
}

// Validate 逐层校验,错误信息带上来源
func (hm *HeaderManager) Validate() error {
	for _, layer := range hm.layers() {
		if err := hm.validator.Validate(layer.headers); err != nil {
			return fmt.Errorf("%s头部: %w", layer.source, err)
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并,高优先级整体覆盖同名头部
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range hm.layers() {
		for name, values := range layer.headers {
			result[name] = values
		}
	}
	return result
}

// GetSafeHeaders 脱敏后的合并结果
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// SafeHeadersString 脱敏后的合并结果,按名称排序
func (hm *HeaderManager) SafeHeadersString() string {
	return hm.redactor.RedactToString(hm.GetMergedHeaders())
}

// GetHeaders 首次调用时加载并校验,之后返回缓存结果的副本
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.merged == nil {
		if err := hm.loadFileLocked(); err != nil {
			return nil, err
		}
		if err := hm.Validate(); err != nil {
			return nil, err
		}
		hm.merged = hm.GetMergedHeaders()
	}
	return hm.merged.Clone(), nil
}
