package crawlers

import (
	"strings"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

// CaptchaDetector 验证码/反爬页面检测
// 对页面源码做不区分大小写的子串匹配
type CaptchaDetector struct {
	phrases []string
}

// NewCaptchaDetector 创建检测器,phrases为空时使用默认特征短语
func NewCaptchaDetector(phrases []string) *CaptchaDetector {
	if len(phrases) == 0 {
		phrases = models.DefaultCaptchaPhrases
	}

	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &CaptchaDetector{phrases: lowered}
}

// Detect 返回命中的特征短语
func (d *CaptchaDetector) Detect(html string) (phrase string, found bool) {
	if html == "" {
		return "", false
	}
	lower := strings.ToLower(html)
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}
