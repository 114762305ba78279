package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ValidateURL 表格中的URL必须是带主机名的绝对http(s)地址
func ValidateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("URL格式无效 %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("不支持的URL协议 %q (仅支持http/https)", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("URL缺少主机名: %q", raw)
	}
	return nil
}

// NewRunID 运行ID
func NewRunID() string {
	return uuid.NewString()
}

// ShortID 8位随机ID,用于调试文件名
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
