package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliHeaders_Parse(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{"名称前后空格", []string{"  User-Agent  : Mozilla/5.0"}, "User-Agent", "Mozilla/5.0", false},
		{"值中间空格保留", []string{"X-Custom:  value with spaces  "}, "X-Custom", "value with spaces", false},
		{"值中包含冒号", []string{"Referer: https://example.com:8443/a"}, "Referer", "https://example.com:8443/a", false},
		{"值中包含等号", []string{"Cookie: a=1; b=2"}, "Cookie", "a=1; b=2", false},
		{"只有冒号没有值", []string{"X-Empty:"}, "X-Empty", "", false},
		{"名称规范化", []string{"accept-language: en"}, "Accept-Language", "en", false},
		{"缺少冒号分隔符", []string{"InvalidFormat"}, "", "", true},
		{"只有冒号没有名称", []string{": value"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, err := CliHeaders(tt.input).Parse()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantValue}, headers[tt.wantName])
		})
	}

	t.Run("nil和空数组", func(t *testing.T) {
		var nilHeaders CliHeaders
		h, err := nilHeaders.Parse()
		require.NoError(t, err)
		assert.Empty(t, h)

		h, err = CliHeaders{}.Parse()
		require.NoError(t, err)
		assert.Empty(t, h)
	})
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("yaml: line 2")
	err := &ConfigError{Path: "configs/headers.yaml", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "configs/headers.yaml")
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{"名称错误带建议", &ValidationError{Header: "Host", Part: "name", Reason: "由客户端管理", Hint: "移除"}, `头部 "Host" 的名称无效: 由客户端管理 (建议: 移除)`},
		{"值错误", &ValidationError{Header: "X-Bad", Part: "value", Reason: "包含控制字符"}, `头部 "X-Bad" 的值无效: 包含控制字符`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
