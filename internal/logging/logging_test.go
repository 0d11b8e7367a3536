package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json output honours level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "warn", "json")
		require.NoError(t, err)

		l.Info().Msg("dropped")
		require.Equal(t, 0, buf.Len())

		l.Warn().Str("ticket", "abc").Msg("kept")
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "kept", rec["message"])
		assert.Equal(t, "abc", rec["ticket"])
		assert.Equal(t, "warn", rec["level"])
	})

	t.Run("console output is not json", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(&buf, "", "console")
		require.NoError(t, err)
		l.Info().Msg("hello")
		assert.Contains(t, buf.String(), "hello")
		assert.False(t, json.Valid(buf.Bytes()))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, "loud", "json")
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, "info", "xml")
		assert.Error(t, err)
	})
}
