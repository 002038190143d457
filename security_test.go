package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSecurityTestApp() *App {
	return &App{
		cfg: &Config{
			Env:              "test",
			AppSigningSecret: "0123456789abcdef",
		},
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		rateBuckets: make(map[string]rateBucket),
	}
}

func TestAdminSessionTokenRoundTrip(t *testing.T) {
	app := newSecurityTestApp()

	token, err := app.createAdminSessionToken(AdminSession{Email: "admin@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := app.verifyAdminSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", session.Email)
}

func TestAdminSessionTokenRejectsWrongSecret(t *testing.T) {
	app := newSecurityTestApp()
	token, err := app.createAdminSessionToken(AdminSession{Email: "admin@example.com"})
	require.NoError(t, err)

	other := newSecurityTestApp()
	other.cfg.AppSigningSecret = "fedcba9876543210"
	_, err = other.verifyAdminSessionToken(token)
	assert.Error(t, err)
}

func TestAdminSessionTokenRejectsGarbage(t *testing.T) {
	app := newSecurityTestApp()
	_, err := app.verifyAdminSessionToken("not-a-token")
	assert.Error(t, err)
}

func TestSanitizeAdminRedirectTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/admin", "/admin"},
		{"/admin/centers/7?next=%2Fadmin", "/admin/centers/7?next=%2Fadmin"},
		{"/admin/map", "/admin/map"},
		{"/api/service-centers", "/admin"},
		{"https://evil.example.com", "/admin"},
		{"//evil.example.com/admin", "/admin"},
		{"", "/admin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeAdminRedirectTarget(tt.target), "target %q", tt.target)
	}
}

func TestCheckRateLimitWindow(t *testing.T) {
	app := newSecurityTestApp()
	now := time.Now()

	for i := 0; i < 3; i++ {
		assert.True(t, app.checkRateLimit("submit:1.2.3.4", 3, time.Minute, now), "request %d within limit", i+1)
	}
	assert.False(t, app.checkRateLimit("submit:1.2.3.4", 3, time.Minute, now), "fourth request must be rejected")

	assert.True(t, app.checkRateLimit("submit:5.6.7.8", 3, time.Minute, now), "other keys are independent")

	later := now.Add(time.Minute)
	assert.True(t, app.checkRateLimit("submit:1.2.3.4", 3, time.Minute, later), "window expiry resets the bucket")
}

func TestPruneRateLimiterState(t *testing.T) {
	app := newSecurityTestApp()
	now := time.Now()

	app.rateBuckets["old"] = rateBucket{start: now.Add(-2 * submitRateLimitWindow), count: 5}
	app.rateBuckets["fresh"] = rateBucket{start: now, count: 1}

	app.pruneRateLimiterState(now)

	_, oldKept := app.rateBuckets["old"]
	_, freshKept := app.rateBuckets["fresh"]
	assert.False(t, oldKept, "expired bucket must be pruned")
	assert.True(t, freshKept, "live bucket must survive")
}
