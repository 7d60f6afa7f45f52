package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"subroute/internal/platform/config"
)

const (
	defaultSentryEnvironment = "production"
	serviceName              = "subroute"
)

// ClientOptions builds Sentry options from cfg. ok is false when no DSN is set.
func ClientOptions(cfg config.SentryConfig) (opts sentry.ClientOptions, ok bool) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return sentry.ClientOptions{}, false
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = defaultSentryEnvironment
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	return sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          strings.TrimSpace(cfg.Release),
		SampleRate:       sampleRate,
		AttachStacktrace: true,
		Tags:             map[string]string{"service": serviceName},
	}, true
}

// InitSentry initializes Sentry and returns whether it is enabled.
func InitSentry(cfg config.SentryConfig) (bool, error) {
	opts, ok := ClientOptions(cfg)
	if !ok {
		return false, nil
	}
	if err := sentry.Init(opts); err != nil {
		return false, fmt.Errorf("init sentry: %w", err)
	}
	return true, nil
}

// Flush waits for buffered events to be delivered.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover captures a panic and reports it to Sentry.
func Recover() {
	sentry.Recover()
}
