package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.5:1234", "", "", "203.0.113.5"},
		{"untrusted forwarder ignored", "203.0.113.5:1234", "198.51.100.1", "", "203.0.113.5"},
		{"trusted forwarder", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted real ip", "127.0.0.1:80", "", "198.51.100.7", "198.51.100.7"},
		{"garbage forwarded", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"ipv6 loopback", "[::1]:80", "198.51.100.2", "", "198.51.100.2"},
		{"no port", "203.0.113.8", "", "", "203.0.113.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal", http.MethodGet, "/analyses/1", "curl/8.0", false},
		{"traversal", http.MethodGet, "/analyses/../../etc/passwd", "", true},
		{"dotenv", http.MethodGet, "/.env", "", true},
		{"script in query", http.MethodGet, "/languages?next=javascript:alert(1)", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &securityMetrics{}
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := detectSuspiciousRequest(r, m); got != tt.want {
				t.Fatalf("detectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
			if tt.want && m.suspiciousRequests != 1 {
				t.Fatalf("suspicious counter = %d", m.suspiciousRequests)
			}
		})
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	m := &securityMetrics{}

	for i := 0; i < 3; i++ {
		if !rl.allow("a", m) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.allow("a", m) {
		t.Fatal("fourth request should be limited")
	}
	if !rl.allow("b", m) {
		t.Fatal("other clients have their own budget")
	}
	if m.rateLimited() != 1 {
		t.Fatalf("rate limit hits = %d", m.rateLimited())
	}

	now = now.Add(time.Minute)
	if !rl.allow("a", m) {
		t.Fatal("a new window should reset the budget")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := newRateLimiter(10)
	defer rl.stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.allow("old", nil)

	now = now.Add(5 * time.Minute)
	rl.allow("recent", nil)

	now = now.Add(6 * time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if n := rl.activeClients(); n != 1 {
		t.Fatalf("active clients = %d, want 1", n)
	}
	rl.stop()
	rl.stop()
}
