package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	app := newTestApp()
	app.Post("/apply", rl.Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func() int {
		resp, err := app.Test(httptest.NewRequest("POST", "/apply", nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, 200, send())
	assert.Equal(t, 200, send())
	assert.Equal(t, fiber.StatusTooManyRequests, send())

	now = now.Add(61 * time.Second)
	assert.Equal(t, 200, send(), "new window")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	_, _, ok := rl.allow("1.2.3.4")
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	rl.cleanup()
	assert.Empty(t, rl.requests)
}
