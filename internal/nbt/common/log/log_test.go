package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type testLogger struct {
	entries []string
	fields  map[string]any
}

func (l *testLogger) Info(_ map[string]any, msg string)  { l.entries = append(l.entries, "INFO:"+msg) }
func (l *testLogger) Error(_ map[string]any, msg string) { l.entries = append(l.entries, "ERROR:"+msg) }
func (l *testLogger) Debug(_ map[string]any, msg string) { l.entries = append(l.entries, "DEBUG:"+msg) }
func (l *testLogger) Warn(_ map[string]any, msg string)  { l.entries = append(l.entries, "WARN:"+msg) }
func (l *testLogger) Panic(_ map[string]any, msg string) {}
func (l *testLogger) Fatal(_ map[string]any, msg string) {}
func (l *testLogger) With(fields map[string]any) Logger {
	l.fields = fields
	return l
}

func TestActualZapLogger(t *testing.T) {
	Debug(map[string]any{
		"key1": "value1",
		"key2": 42,
		"err":  errors.New("boom"),
	}, "test debug")
	Info(nil, "test info")
	Warn(nil, "test warn")
	Error(nil, "test error")
	GetLogger().With(map[string]any{"component": "test"}).Info(nil, "child info")

	assert.Panics(t, func() { Panic(nil, "test panic") })
}

func TestSetLoggerAndGlobalLogging(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	tlog := &testLogger{}
	SetLogger(tlog)

	Info(nil, "info msg")
	Error(nil, "error msg")
	Debug(nil, "debug msg")
	Warn(nil, "warn msg")

	assert.Equal(t, []string{
		"INFO:info msg",
		"ERROR:error msg",
		"DEBUG:debug msg",
		"WARN:warn msg",
	}, tlog.entries)

	GetLogger().With(map[string]any{"component": "wire"})
	assert.Equal(t, "wire", tlog.fields["component"])
}

func TestConfigure(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	tests := []struct {
		name    string
		env     string
		level   string
		wantErr bool
	}{
		{name: "prod info", env: "prod", level: "info"},
		{name: "dev debug", env: "dev", level: "debug"},
		{name: "upper case level", env: "prod", level: "WARN"},
		{name: "invalid level", env: "prod", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Configure(tt.env, tt.level)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, GetLogger())
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel(" Error ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, lvl)

	_, err = ParseLevel("nope")
	assert.Error(t, err)
}

func TestNoopLogger(t *testing.T) {
	l := NewNoopLogger()
	l.Info(nil, "x")
	l.Error(nil, "x")
	l.Debug(nil, "x")
	l.Warn(nil, "x")
	l.Panic(nil, "x")
	l.Fatal(nil, "x")
	assert.Same(t, l, l.With(map[string]any{"a": 1}))
}
