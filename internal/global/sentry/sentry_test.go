package sentry

import (
	"fundverse/config"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type coded int32

func (c coded) Error() string  { return "coded" }
func (c coded) GetCode() int32 { return int32(c) }

func TestShouldReport(t *testing.T) {
	assert.False(t, shouldReport(nil))
	assert.True(t, shouldReport(errors.New("plain")))
	assert.True(t, shouldReport(coded(500)))
	assert.True(t, shouldReport(errors.Wrap(coded(503), "wrapped")))
	assert.False(t, shouldReport(coded(404)))
	assert.False(t, shouldReport(coded(422)))
}

func TestScrub(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		Headers: map[string]string{"Authorization": "Bearer x", "Cookie": "a=b", "Accept": "json"},
		Cookies: "a=b",
		Data:    `{"email":"a@b.c","Password":"secret"}`,
	}}
	out := scrub(event)
	assert.Equal(t, map[string]string{"Accept": "json"}, out.Request.Headers)
	assert.Empty(t, out.Request.Cookies)
	assert.Equal(t, "[filtered]", out.Request.Data)

	assert.Nil(t, scrub(nil))
	bare := &sentry.Event{}
	assert.Same(t, bare, scrub(bare))
}

func TestClientOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Sentry.Dsn = "https://key@example.com/1"
	cfg.Sentry.SampleRate = 0

	opts := clientOptions(&cfg)
	assert.Equal(t, string(cfg.Mode), opts.Environment)
	assert.Equal(t, 1.0, opts.TracesSampleRate)
	assert.Equal(t, Release, opts.Release)
	assert.Equal(t, "memory", opts.Tags["storage_driver"])

	cfg.Sentry.Environment = "staging"
	cfg.Sentry.SampleRate = 0.25
	opts = clientOptions(&cfg)
	assert.Equal(t, "staging", opts.Environment)
	assert.Equal(t, 0.25, opts.TracesSampleRate)
}

func TestDisabledIsNoop(t *testing.T) {
	cfg := config.Default()
	config.Set(&cfg)
	assert.False(t, Enabled())
	assert.NoError(t, Init())
	Flush(0)
}
