package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowBlocksAfterMaxAttempts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewLoginRateLimiter(3, time.Minute)
	defer rl.Stop()
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("1.2.3.4"), "attempt %d", i+1)
	}
	require.False(t, rl.Allow("1.2.3.4"))
	require.True(t, rl.Allow("5.6.7.8"))
	require.Equal(t, 61, rl.RetryAfterSeconds("1.2.3.4"))

	now = now.Add(time.Minute + time.Second)
	require.True(t, rl.Allow("1.2.3.4"))
}

func TestResetClearsCounter(t *testing.T) {
	rl := NewLoginRateLimiter(1, time.Minute)
	defer rl.Stop()

	require.True(t, rl.Allow("ip"))
	require.False(t, rl.Allow("ip"))
	rl.Reset("ip")
	require.True(t, rl.Allow("ip"))
	require.Zero(t, rl.RetryAfterSeconds("unknown"))
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	require.Equal(t, "10.0.0.1", ExtractIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	require.Equal(t, "10.0.0.2", ExtractIP(r))

	r.Header.Set("X-Forwarded-For", "10.0.0.3, 172.16.0.1")
	require.Equal(t, "10.0.0.3", ExtractIP(r))
}

func TestFormatRetryMessage(t *testing.T) {
	require.Equal(t, "2 minute(s)", FormatRetryMessage(120))
	require.Equal(t, "45 second(s)", FormatRetryMessage(45))
}
