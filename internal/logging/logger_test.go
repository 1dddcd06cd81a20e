package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{input: "error", expected: LevelError},
		{input: "WARN", expected: LevelWarn},
		{input: " info ", expected: LevelInfo},
		{input: "Debug", expected: LevelDebug},
		{input: "TRACE", expected: LevelTrace},
		{input: "verbose", expected: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWithPrefixSharesLevel(t *testing.T) {
	root := NewLogger("test", true)
	child := root.WithPrefix("store")

	assert.Equal(t, "store", child.Prefix())
	assert.False(t, child.shouldLog(LevelDebug))

	root.SetLevel(LevelTrace)
	assert.True(t, child.shouldLog(LevelTrace))
	assert.Equal(t, LevelTrace, child.Level())
}

func TestNopLoggerDiscards(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Error("boom %d", 1)
		l.Trace("quiet")
	})
	assert.Equal(t, "DEBUG", LevelDebug.String())
}

func TestSetDevelopmentReachesDerivedLoggers(t *testing.T) {
	root := NewLogger("test", false)
	child := root.WithPrefix("api")

	before := child.core.load()
	root.SetDevelopment(true)
	assert.NotSame(t, before, child.core.load())
	assert.Same(t, root.core, child.core)

	assert.NotPanics(t, func() {
		NewNop().SetDevelopment(true)
	})
}
