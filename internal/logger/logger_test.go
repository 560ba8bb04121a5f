package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		jsonOutput bool
		wantErr    bool
	}{
		{name: "console info", level: "info"},
		{name: "json debug", level: "debug", jsonOutput: true},
		{name: "bad level", level: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := Logger
			t.Cleanup(func() { Logger = prev; JSONOutput = false })

			err := Initialize(tt.level, tt.jsonOutput)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
		})
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestHelpersWriteToGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core).Sugar()
	t.Cleanup(func() { Logger = prev })

	Debugw("debug", "k", 1)
	Infow("info")
	Warnw("warn", "duplicate", "GET /a")
	Errorw("error")
	Named("watcher").Infow("named")

	require.Equal(t, 5, logs.Len())
	entries := logs.All()
	assert.Equal(t, "GET /a", entries[2].ContextMap()["duplicate"])
	assert.Equal(t, "watcher", entries[4].LoggerName)
}
