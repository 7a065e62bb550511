package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/menu-catalog/internal/common"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.7:5123", "192.0.2.7"},
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.9"},
		{"forwarded skips garbage", map[string]string{"X-Forwarded-For": "unknown, 198.51.100.4"}, "10.0.0.1:80", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.8 "}, "10.0.0.1:80", "198.51.100.8"},
		{"mapped ipv4", nil, "[::ffff:192.0.2.1]:443", "192.0.2.1"},
		{"ipv6 canonical", map[string]string{"X-Real-IP": "2001:DB8:0:0::1"}, "", "2001:db8::1"},
		{"unparseable remote", nil, "pipe", "pipe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, common.ClientIP(req))
		})
	}
	require.Empty(t, common.ClientIP(nil))
}
