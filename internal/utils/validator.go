package utils

import (
	"fmt"
	"net/http"
	"sort"

	"golang.org/x/net/http/httpguts"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

// MaxHeaderValueLength 头部值最大长度(字节)
const MaxHeaderValueLength = 8192

// managedHeaders 由HTTP客户端或浏览器自行设置的头部,用户配置会导致请求异常
var managedHeaders = map[string]bool{
	"Host":              true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Connection":        true,
	"Upgrade":           true,
	"Te":                true,
	"Trailer":           true,
}

// HeaderValidator 按RFC 7230检查头部名称和值
type HeaderValidator struct {
	maxValueLength int
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	return &HeaderValidator{maxValueLength: MaxHeaderValueLength}
}

// IsForbidden 是否为不允许配置的头部(不区分大小写)
func (hv *HeaderValidator) IsForbidden(name string) bool {
	return managedHeaders[http.CanonicalHeaderKey(name)]
}

// ValidateName 名称必须是非空的token
func (hv *HeaderValidator) ValidateName(name string) error {
	if name == "" {
		return &models.ValidationError{Header: name, Part: "name", Reason: "不能为空"}
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return &models.ValidationError{
			Header: name,
			Part:   "name",
			Reason: "包含空格或分隔符",
			Hint:   "例如 'User-Agent', 'X-Requested-With'",
		}
	}
	return nil
}

// ValidateValue 值不能超长,不能含控制字符(制表符除外)
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	if len(value) > hv.maxValueLength {
		return &models.ValidationError{
			Header: name,
			Part:   "value",
			Reason: fmt.Sprintf("长度 %d 字节超过上限 %d", len(value), hv.maxValueLength),
		}
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return &models.ValidationError{
			Header: name,
			Part:   "value",
			Reason: "包含控制字符",
			Hint:   "移除换行符和其他不可见字符",
		}
	}
	return nil
}

// ValidateHeader 依次检查是否受管、名称、值
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if hv.IsForbidden(name) {
		return &models.ValidationError{
			Header: name,
			Part:   "name",
			Reason: "由HTTP客户端管理,不允许自定义",
			Hint:   fmt.Sprintf("删除 %s 配置", name),
		}
	}
	if err := hv.ValidateName(name); err != nil {
		return err
	}
	return hv.ValidateValue(name, value)
}

// Validate 按名称顺序检查全部头部,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range headers[name] {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}
