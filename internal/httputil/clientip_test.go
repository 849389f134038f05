package httputil

import (
	"net/http"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trust      bool
		xff, xri   string
		remoteAddr string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "remote addr without port", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{name: "headers ignored when untrusted", xff: "1.2.3.4", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "xff single", trust: true, xff: "1.2.3.4", remoteAddr: "10.0.0.1:1234", want: "1.2.3.4"},
		{name: "xff leftmost", trust: true, xff: "1.2.3.4, 10.0.0.1, 10.0.0.2", remoteAddr: "10.0.0.3:1234", want: "1.2.3.4"},
		{name: "xff skips garbage", trust: true, xff: "unknown, 1.2.3.4", remoteAddr: "10.0.0.3:1234", want: "1.2.3.4"},
		{name: "xff unmaps v4-in-v6", trust: true, xff: "::ffff:1.2.3.4", remoteAddr: "10.0.0.3:1234", want: "1.2.3.4"},
		{name: "x-real-ip fallback", trust: true, xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "5.6.7.8"},
		{name: "xff beats x-real-ip", trust: true, xff: "1.2.3.4", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "1.2.3.4"},
		{name: "invalid headers fall back", trust: true, xff: "nope", xri: "also-nope", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "no headers", trust: true, remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r, tt.trust); got != tt.want {
				t.Errorf("ClientIP(trust=%v) = %q, want %q", tt.trust, got, tt.want)
			}
		})
	}
}
