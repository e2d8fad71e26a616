package faas_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/faas"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		"empty is info": {in: "", want: slog.LevelInfo},
		"debug":         {in: "debug", want: slog.LevelDebug},
		"upper case":    {in: "ERROR", want: slog.LevelError},
		"warn":          {in: " warn ", want: slog.LevelWarn},
		"unknown":       {in: "chatty", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := faas.ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewLogger_filters_by_level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := faas.NewLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("shown", "addr", "127.0.0.1:3000")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "addr=127.0.0.1:3000")
}
