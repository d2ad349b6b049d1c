// Package zap implements observability.StructuredLogger on go.uber.org/zap,
// optionally forwarding error entries to an ErrorNotifier such as SNS.
package zap

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	ubzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theory-cloud/docsite/pkg/observability"
	"github.com/theory-cloud/docsite/pkg/sanitization"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"

	formatJSON    = "json"
	formatConsole = "console"

	// Present in every CodeBuild container.
	codeBuildEnvVar = "CODEBUILD_BUILD_ID"
)

var (
	ErrUnsupportedFormat = errors.New("observability/zap: unsupported log format")
	ErrUnsupportedLevel  = errors.New("observability/zap: unsupported log level")
)

type Option func(*loggerOptions)

type loggerOptions struct {
	initErr error

	zapLogger *ubzap.Logger
	sanitizer observability.SanitizerFunc
	notifier  observability.ErrorNotifier
	lookupEnv func(string) (string, bool)

	deferred []Option
}

func WithZapLogger(logger *ubzap.Logger) Option {
	return func(opts *loggerOptions) {
		opts.zapLogger = logger
	}
}

func WithSanitizer(fn observability.SanitizerFunc) Option {
	return func(opts *loggerOptions) {
		opts.sanitizer = fn
	}
}

func WithErrorNotifier(notifier observability.ErrorNotifier) Option {
	return func(opts *loggerOptions) {
		opts.notifier = notifier
	}
}

// WithLookupEnv replaces os.LookupEnv when choosing defaults and notifiers.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(opts *loggerOptions) {
		if fn != nil {
			opts.lookupEnv = fn
		}
	}
}

type zapCore struct {
	logger *ubzap.Logger

	sanitizer observability.SanitizerFunc
	notifier  observability.ErrorNotifier

	retryDelay time.Duration
	maxRetries int

	notifyMu sync.Mutex
	notifyCh chan observability.LogEntry
	notifyWg sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool

	entriesLogged  atomic.Int64
	entriesDropped atomic.Int64
	notified       atomic.Int64
	errorCount     atomic.Int64
	lastFlushNanos atomic.Int64
	lastError      atomic.Value
}

type Logger struct {
	core *zapCore
	log  *ubzap.Logger

	fields map[string]any
	scope  observability.Scope
}

var _ observability.StructuredLogger = (*Logger)(nil)

func NewZapLogger(config observability.LoggerConfig, options ...Option) (observability.StructuredLogger, error) {
	opts := &loggerOptions{
		sanitizer: sanitization.SanitizeFieldValue,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(opts)
	}
	for _, opt := range opts.deferred {
		opt(opts)
	}
	if opts.initErr != nil {
		return nil, opts.initErr
	}

	cfg := normalizeLoggerConfig(config, opts.lookupEnv)

	base := opts.zapLogger
	if base == nil {
		var err error
		if base, err = buildZapLogger(cfg); err != nil {
			return nil, err
		}
	}

	zcore := &zapCore{
		logger:     base,
		sanitizer:  opts.sanitizer,
		notifier:   opts.notifier,
		retryDelay: cfg.RetryDelay,
		maxRetries: cfg.MaxRetries,
	}
	zcore.lastError.Store("")

	if zcore.notifier != nil {
		ch := make(chan observability.LogEntry, cfg.BufferSize)
		zcore.notifyCh = ch
		go zcore.runNotifier(ch)
	}

	return &Logger{
		core:   zcore,
		log:    base,
		fields: map[string]any{},
	}, nil
}

func buildZapLogger(cfg observability.LoggerConfig) (*ubzap.Logger, error) {
	level, err := parseZapLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	enc := zapEncoderConfig(cfg.EnableCaller)
	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case formatConsole:
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(enc)
	case formatJSON:
		encoder = zapcore.NewJSONEncoder(enc)
	default:
		return nil, ErrUnsupportedFormat
	}

	base := ubzap.New(zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(cfg.Output)), level))
	if cfg.EnableCaller {
		base = base.WithOptions(ubzap.AddCaller())
	}
	return base, nil
}

func normalizeLoggerConfig(config observability.LoggerConfig, lookupEnv func(string) (string, bool)) observability.LoggerConfig {
	cfg := config

	if strings.TrimSpace(cfg.Format) == "" {
		cfg.Format = formatConsole
		if v, ok := lookupEnv(codeBuildEnvVar); ok && strings.TrimSpace(v) != "" {
			cfg.Format = formatJSON
		}
	}
	if strings.TrimSpace(cfg.Level) == "" {
		cfg.Level = levelInfo
	}
	if cfg.Output == nil {
		// stdout carries synthesized templates and rendered documents.
		cfg.Output = os.Stderr
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return cfg
}

func parseZapLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case levelDebug:
		return zapcore.DebugLevel, nil
	case levelInfo, "":
		return zapcore.InfoLevel, nil
	case levelWarn, "warning":
		return zapcore.WarnLevel, nil
	case levelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, ErrUnsupportedLevel
	}
}

func zapEncoderConfig(enableCaller bool) zapcore.EncoderConfig {
	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if enableCaller {
		enc.CallerKey = "caller"
		enc.EncodeCaller = zapcore.ShortCallerEncoder
	}
	return enc
}

func (l *Logger) Debug(message string, fields ...map[string]any) {
	l.logEntry(levelDebug, message, fields...)
}
func (l *Logger) Info(message string, fields ...map[string]any) {
	l.logEntry(levelInfo, message, fields...)
}
func (l *Logger) Warn(message string, fields ...map[string]any) {
	l.logEntry(levelWarn, message, fields...)
}
func (l *Logger) Error(message string, fields ...map[string]any) {
	l.logEntry(levelError, message, fields...)
}

func (l *Logger) WithField(key string, value any) observability.StructuredLogger {
	return l.WithFields(map[string]any{key: value})
}

func (l *Logger) WithFields(fields map[string]any) observability.StructuredLogger {
	next := l.clone()
	for k, v := range fields {
		next.fields[k] = v
	}
	next.log = next.log.With(l.zapFields(fields)...)
	return next
}

// WithScope attaches the non-empty scope values. Values already attached are
// replaced in notifications; zap output keeps the latest value last.
func (l *Logger) WithScope(scope observability.Scope) observability.StructuredLogger {
	next := l.clone()
	next.scope = next.scope.Merge(scope)
	for k, v := range scope.Fields() {
		next.log = next.log.With(ubzap.String(k, sanitization.SanitizeLogString(v)))
	}
	return next
}

func (l *Logger) Flush(ctx context.Context) error {
	if l == nil || l.core == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	err := l.core.sync()
	l.core.waitNotifier(ctx)
	l.core.lastFlushNanos.Store(time.Now().UnixNano())
	return err
}

func (l *Logger) Close() error {
	if l == nil || l.core == nil {
		return nil
	}
	return l.core.close()
}

func (l *Logger) IsHealthy() bool {
	if l == nil || l.core == nil || l.core.closed.Load() {
		return false
	}
	return l.core.lastErrorString() == ""
}

func (l *Logger) GetStats() observability.LoggerStats {
	if l == nil || l.core == nil {
		return observability.LoggerStats{}
	}

	var lastFlush time.Time
	if nanos := l.core.lastFlushNanos.Load(); nanos > 0 {
		lastFlush = time.Unix(0, nanos)
	}
	return observability.LoggerStats{
		LastFlush:      lastFlush,
		LastError:      l.core.lastErrorString(),
		EntriesLogged:  l.core.entriesLogged.Load(),
		EntriesDropped: l.core.entriesDropped.Load(),
		Notified:       l.core.notified.Load(),
		ErrorCount:     l.core.errorCount.Load(),
	}
}

func (l *Logger) clone() *Logger {
	if l == nil {
		return &Logger{}
	}
	nextFields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		nextFields[k] = v
	}
	return &Logger{
		core:   l.core,
		log:    l.log,
		fields: nextFields,
		scope:  l.scope,
	}
}

func (l *Logger) logEntry(level string, message string, fields ...map[string]any) {
	if l == nil || l.core == nil || l.log == nil || l.core.closed.Load() {
		return
	}

	message = sanitization.SanitizeLogString(message)
	callFields := mergeFields(fields...)

	zf := l.zapFields(callFields)
	switch level {
	case levelDebug:
		l.log.Debug(message, zf...)
	case levelWarn:
		l.log.Warn(message, zf...)
	case levelError:
		l.log.Error(message, zf...)
	default:
		l.log.Info(message, zf...)
	}
	l.core.entriesLogged.Add(1)

	if level == levelError && l.core.notifier != nil {
		l.core.enqueue(observability.LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   message,
			Fields:    l.sanitize(mergeFields(l.fields, callFields)),
			Scope:     l.scope,
		})
	}
}

func (l *Logger) sanitize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if l.core.sanitizer != nil {
			v = l.core.sanitizer(k, v)
		}
		out[k] = v
	}
	return out
}

func (l *Logger) zapFields(fields map[string]any) []ubzap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]ubzap.Field, 0, len(fields))
	for k, v := range l.sanitize(fields) {
		out = append(out, ubzap.Any(k, v))
	}
	return out
}

func mergeFields(sets ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

func (c *zapCore) sync() error {
	err := c.logger.Sync()
	// Syncing a terminal or pipe fails with EINVAL/ENOTTY; that is not a logger fault.
	if err != nil && !isIgnorableSyncError(err) {
		c.recordError(err)
		return err
	}
	return nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}

func (c *zapCore) recordError(err error) {
	c.errorCount.Add(1)
	c.lastError.Store(err.Error())
}

func (c *zapCore) enqueue(entry observability.LogEntry) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if c.closed.Load() || c.notifyCh == nil {
		c.entriesDropped.Add(1)
		return
	}

	c.notifyWg.Add(1)
	select {
	case c.notifyCh <- entry:
	default:
		c.notifyWg.Done()
		c.entriesDropped.Add(1)
	}
}

// runNotifier drains ch until close closes it. ch is passed in because close
// clears the notifyCh field.
func (c *zapCore) runNotifier(ch <-chan observability.LogEntry) {
	for entry := range ch {
		if err := c.notify(entry); err != nil {
			c.recordError(err)
		} else {
			c.notified.Add(1)
		}
		c.notifyWg.Done()
	}
}

func (c *zapCore) notify(entry observability.LogEntry) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.maxRetries-1))
	return backoff.Retry(func() error {
		return c.notifier.Notify(context.Background(), entry)
	}, policy)
}

func (c *zapCore) waitNotifier(ctx context.Context) {
	c.notifyMu.Lock()
	active := c.notifyCh != nil
	c.notifyMu.Unlock()
	if !active {
		return
	}

	done := make(chan struct{})
	go func() {
		c.notifyWg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}

func (c *zapCore) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.notifyMu.Lock()
		c.closed.Store(true)
		if c.notifyCh != nil {
			close(c.notifyCh)
			c.notifyCh = nil
		}
		c.notifyMu.Unlock()

		c.notifyWg.Wait()
		err = c.sync()
	})
	return err
}

func (c *zapCore) lastErrorString() string {
	if c == nil {
		return ""
	}
	lastError, _ := c.lastError.Load().(string)
	return lastError
}
