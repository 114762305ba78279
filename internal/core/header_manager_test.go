package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/SheetCrawler/internal/models"
)

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部存在", func(t *testing.T) {
		hm, err := NewHeaderManager("", nil)
		require.NoError(t, err)

		headers := hm.GetMergedHeaders()
		assert.Equal(t, DefaultUserAgent, headers.Get("User-Agent"))
		assert.Equal(t, "gzip, deflate, br", headers.Get("Accept-Encoding"))
	})

	t.Run("命令行头部覆盖默认", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{"User-Agent: CustomBot/1.0"})
		require.NoError(t, err)
		assert.Equal(t, "CustomBot/1.0", hm.GetMergedHeaders().Get("User-Agent"))
	})

	t.Run("多个命令行头部", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{
			"User-Agent: CustomBot/1.0",
			"X-Custom: value1",
			"Authorization: Bearer token123",
		})
		require.NoError(t, err)

		headers := hm.GetMergedHeaders()
		assert.Equal(t, "CustomBot/1.0", headers.Get("User-Agent"))
		assert.Equal(t, "value1", headers.Get("X-Custom"))
		assert.Equal(t, "Bearer token123", headers.Get("Authorization"))
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager("", []string{
		"User-Agent: CustomBot/1.0",
		"Authorization: Bearer secret-token-12345",
		"X-API-Key: api-key-67890",
	})
	require.NoError(t, err)

	safe := hm.GetSafeHeaders()
	assert.Equal(t, "CustomBot/1.0", safe["User-Agent"], "普通头部不应该被脱敏")
	assert.Equal(t, "Bearer ***", safe["Authorization"])
	assert.Equal(t, "api-***7890", safe["X-Api-Key"])

	assert.NotContains(t, hm.SafeHeadersString(), "secret-token")
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	t.Run("非法命令行参数返回错误", func(t *testing.T) {
		_, err := NewHeaderManager("", []string{"InvalidFormat"})
		assert.Error(t, err)
	})

	t.Run("禁止头部返回验证错误", func(t *testing.T) {
		hm, err := NewHeaderManager(filepath.Join(t.TempDir(), "headers.yaml"), []string{"Host: example.com"})
		require.NoError(t, err)

		_, err = hm.GetHeaders()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "命令行")

		var ve *models.ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.Equal(t, "Host", ve.Header)
	})

	t.Run("优先级 默认 < 配置 < 命令行", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`headers:
  User-Agent: "FromConfig/1.0"
  Accept-Language: "de-DE"
  X-From-Config: "yes"
`), 0644))

		hm, err := NewHeaderManager(path, []string{"User-Agent: FromCLI/1.0"})
		require.NoError(t, err)

		headers, err := hm.GetHeaders()
		require.NoError(t, err)
		assert.Equal(t, "FromCLI/1.0", headers.Get("User-Agent"))
		assert.Equal(t, "de-DE", headers.Get("Accept-Language"))
		assert.Equal(t, "yes", headers.Get("X-From-Config"))
		assert.NotEmpty(t, headers.Get("Accept"))
	})

	t.Run("返回副本", func(t *testing.T) {
		hm, err := NewHeaderManager(filepath.Join(t.TempDir(), "headers.yaml"), nil)
		require.NoError(t, err)

		first, err := hm.GetHeaders()
		require.NoError(t, err)
		first.Set("User-Agent", "mutated")

		second, err := hm.GetHeaders()
		require.NoError(t, err)
		assert.Equal(t, DefaultUserAgent, second.Get("User-Agent"))
	})
}
