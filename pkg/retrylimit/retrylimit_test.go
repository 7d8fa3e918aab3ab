package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restError(code int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: code, Status: http.StatusText(code)}}
}

func fastConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{restError(429), true},
		{restError(500), true},
		{restError(503), true},
		{restError(400), false},
		{restError(403), false},
		{fmt.Errorf("wrapped: %w", restError(502)), true},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Transient(tt.err), "%v", tt.err)
	}
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return restError(503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return restError(403)
	})
	assert.Equal(t, 403, StatusCode(err))
	assert.Equal(t, 1, calls)
}

func TestDo_FatalError(t *testing.T) {
	calls := 0
	cfg := fastConfig()
	cfg.Retryable = func(error) bool { return true }
	err := Do(context.Background(), cfg, func() error {
		calls++
		return &FatalError{Err: errors.New("stop")}
	})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return restError(500)
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 500, StatusCode(err))
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return restError(429)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
