package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xpanel/internal/config"
)

const service = "xpanel"

type ctxKey int

const (
	traceIDKey ctxKey = iota
	accountIDKey
)

// New builds the process logger on stdout. Console output is used in dev or when
// log.format is "console"; everything else is JSON.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg, dev)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.DurationFieldUnit = time.Millisecond

	if dev || strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Str("service", service).Logger()

	if cfg.Sampling && !dev {
		// bursts of 100 per second pass untouched, the rest 1 in 100; warnings and errors are never sampled
		l = l.Sample(zerolog.LevelSampler{
			TraceSampler: &zerolog.BurstSampler{Burst: 100, Period: time.Second, NextSampler: &zerolog.BasicSampler{N: 100}},
			DebugSampler: &zerolog.BurstSampler{Burst: 100, Period: time.Second, NextSampler: &zerolog.BasicSampler{N: 100}},
			InfoSampler:  &zerolog.BurstSampler{Burst: 100, Period: time.Second, NextSampler: &zerolog.BasicSampler{N: 100}},
		})
	}
	return &l
}

// With returns base enriched with the request trace id and the acting account, when present.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	c := base.With()
	if id := TraceIDFrom(ctx); id != "" {
		c = c.Str("trace_id", id)
	}
	if id, ok := ctx.Value(accountIDKey).(int64); ok {
		c = c.Int64("account_id", id)
	}
	l := c.Logger()
	return &l
}

// TraceDuration logs the elapsed time of a call at trace level.
//
//	defer logging.TraceDuration(u.log, "ActivationUC.Redeem")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	start := time.Now()
	return func() {
		logger.Trace().Str("method", name).Dur("elapsed", time.Since(start)).Msg("done")
	}
}

// MaskEmail keeps the first letter of the local part and the domain: n***@example.com.
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func WithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// TraceIDFrom returns the request trace id, or "" outside a request.
func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}
