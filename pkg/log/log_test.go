package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/jaeger-client-go/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObservedGlobals(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	oldL := L()
	oldP := _globalP.Load().(*ZapProperties)
	t.Cleanup(func() {
		replaceLeveledLoggers(oldL)
		ReplaceGlobals(oldL, oldP)
	})

	core, logs := observer.New(zapcore.DebugLevel)
	lg := zap.New(core)
	replaceLeveledLoggers(lg)
	ReplaceGlobals(lg, &ZapProperties{Core: core, Level: zap.NewAtomicLevelAt(level)})
	return logs
}

func TestInitLogger(t *testing.T) {
	lg, props, err := InitLogger(&Config{Level: "warn", Format: FormatJSON})
	require.NoError(t, err)
	assert.NotNil(t, lg)
	assert.Equal(t, zapcore.WarnLevel, props.Level.Level())

	_, _, err = InitLogger(&Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestStdLoggerBuildsLeveledLoggers(t *testing.T) {
	saved := make(map[any]any)
	_globalLevelLogger.Range(func(k, v any) bool {
		saved[k] = v
		_globalLevelLogger.Delete(k)
		return true
	})
	t.Cleanup(func() {
		for k, v := range saved {
			_globalLevelLogger.Store(k, v)
		}
	})

	lg, props := newStdLogger()
	require.NotNil(t, lg)
	assert.Equal(t, zapcore.InfoLevel, props.Level.Level())
	for _, level := range []zapcore.Level{
		zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel,
		zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel,
	} {
		v, ok := _globalLevelLogger.Load(level)
		require.True(t, ok, level.String())
		assert.IsType(t, &zap.Logger{}, v)
	}
	assert.Len(t, saved, 7)
}

func TestInitFileLogRejectsDirectory(t *testing.T) {
	_, err := initFileLog(&FileLogConfig{RootPath: t.TempDir()})
	assert.Error(t, err)

	lj, err := initFileLog(&FileLogConfig{RootPath: t.TempDir(), Filename: "graphdoc.log"})
	require.NoError(t, err)
	assert.Equal(t, defaultLogMaxSize, lj.MaxSize)
}

func TestInitTestLogger(t *testing.T) {
	lg, _, err := InitTestLogger(t, &Config{Level: "debug"})
	require.NoError(t, err)
	lg.Debug("test logger works", zap.String("key", "value"))
}

func TestCtxCarriesFields(t *testing.T) {
	logs := withObservedGlobals(t, zapcore.InfoLevel)

	ctx := WithModule(context.Background(), "serialization")
	ctx = WithTraceID(ctx, "trace-1")
	Ctx(ctx).Info("hello")
	Ctx(ctx).Debug("hidden")

	entries := logs.FilterMessage("hello").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "serialization", fields[FieldNameModule])
	assert.Equal(t, "trace-1", fields["traceID"])
	assert.Zero(t, logs.FilterMessage("hidden").Len())

	debugCtx := WithDebugLevel(context.Background())
	Ctx(debugCtx).Debug("visible")
	assert.Equal(t, 1, logs.FilterMessage("visible").Len())
}

func TestCtxWithoutLogger(t *testing.T) {
	logs := withObservedGlobals(t, zapcore.InfoLevel)

	//nolint:staticcheck
	Ctx(nil).Info("nil ctx")
	With(FieldComponent("emitter")).Warn("component")

	assert.Equal(t, 1, logs.FilterMessage("nil ctx").Len())
	entries := logs.FilterMessage("component").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "emitter", entries[0].ContextMap()[FieldNameComponent])
}

func TestRatedLogging(t *testing.T) {
	logs := withObservedGlobals(t, zapcore.DebugLevel)

	l := With().WithRateGroup("rated-test", 0.0001, 1)
	assert.True(t, l.RatedInfo(1, "first"))
	assert.False(t, l.RatedInfo(1, "second"))
	assert.Equal(t, 1, logs.FilterMessage("first").Len())
	assert.Zero(t, logs.FilterMessage("second").Len())

	// 同名分组共享限流器
	other := With().WithRateGroup("rated-test", 0.0001, 1)
	assert.False(t, other.RatedWarn(1, "third"))

	// 派生 Logger 继承限流器
	assert.False(t, l.With(zap.Int("n", 1)).RatedDebug(1, "fourth"))
}

func TestRateLimiterFromEnv(t *testing.T) {
	t.Cleanup(configureRateLimiterFromEnv)

	t.Setenv(envRateEnable, "true")
	t.Setenv(envRateCreditPerSecond, "2")
	configureRateLimiterFromEnv()
	_, ok := R().(*utils.ReconfigurableRateLimiter)
	assert.True(t, ok)

	t.Setenv(envRateEnable, "off")
	configureRateLimiterFromEnv()
	_, ok = R().(nopRateLimiter)
	assert.True(t, ok)
	assert.True(t, R().CheckCredit(1000))
}

func TestBinder(t *testing.T) {
	var b Binder
	assert.NotNil(t, b.Logger())

	l := With(FieldModule("binder"))
	b.SetLogger(l)
	assert.Same(t, l, b.Logger())
}

func TestSetLevel(t *testing.T) {
	withObservedGlobals(t, zapcore.InfoLevel)
	SetLevel(zapcore.ErrorLevel)
	assert.Equal(t, zapcore.ErrorLevel, GetLevel())
}
