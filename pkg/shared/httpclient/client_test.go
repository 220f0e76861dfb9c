package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codesift-sec/codesift/pkg/shared/config"
)

func boolPtr(v bool) *bool { return &v }

func TestApplyHTTPClientConfigTLSVerify(t *testing.T) {
	testCases := []struct {
		name       string
		verify     *bool
		skipVerify bool
	}{
		{"unset verifies certificates", nil, false},
		{"explicit true verifies certificates", boolPtr(true), false},
		{"explicit false disables verification", boolPtr(false), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			httpConfig := &config.HTTPClient{}
			httpConfig.TLSClientConfig.Verify = tc.verify
			cfg := applyHTTPClientConfig(httpConfig)
			assert.Equal(t, tc.skipVerify, cfg.TLSClientConfig.InsecureSkipVerify)
		})
	}
}

func TestApplyHTTPClientConfigDefaults(t *testing.T) {
	cfg := applyHTTPClientConfig(nil)
	defaults := config.DefaultRestyConfig()
	assert.Equal(t, defaults.RetryCount, cfg.RetryCount)
	assert.False(t, cfg.TLSClientConfig.InsecureSkipVerify)
	assert.False(t, cfg.Debug)
}
