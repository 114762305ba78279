package utils

import (
	"net/http"
	"sort"
	"strings"
)

// sensitiveMarkers 名称中包含这些片段的头部在日志中脱敏
var sensitiveMarkers = []string{
	"authorization",
	"cookie",
	"token",
	"secret",
	"password",
	"session",
	"credential",
	"key",
}

// authSchemes 认证头部中保留的方案前缀
var authSchemes = []string{"Bearer ", "Basic ", "Token "}

const mask = "***"

// HeaderRedactor 日志输出前隐藏凭据
type HeaderRedactor struct{}

// NewHeaderRedactor 创建脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{}
}

// IsSensitiveHeader 按名称判断
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 返回可写入日志的值
//
//   - 认证方案前缀保留: "Bearer abc" → "Bearer ***"
//   - Cookie保留每项的名称: "sid=1; lang=en" → "sid=***; lang=***"
//   - 其他值长于8字节时保留首尾各4字节
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	if !hr.IsSensitiveHeader(name) {
		return value
	}

	for _, scheme := range authSchemes {
		if strings.HasPrefix(value, scheme) {
			return scheme + mask
		}
	}

	if http.CanonicalHeaderKey(name) == "Cookie" {
		return redactCookies(value)
	}

	if len(value) > 8 {
		return value[:4] + mask + value[len(value)-4:]
	}
	return mask
}

func redactCookies(value string) string {
	parts := strings.Split(value, ";")
	for i, part := range parts {
		name, _, _ := strings.Cut(strings.TrimSpace(part), "=")
		parts[i] = name + "=" + mask
	}
	return strings.Join(parts, "; ")
}

// Redact 每个头部取第一个值并脱敏
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			result[name] = hr.RedactHeaderValue(name, values[0])
		}
	}
	return result
}

// RedactToString "Name: value" 按名称排序后以逗号连接
func (hr *HeaderRedactor) RedactToString(headers http.Header) string {
	redacted := hr.Redact(headers)
	names := make([]string, 0, len(redacted))
	for name := range redacted {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(redacted[name])
	}
	return b.String()
}
