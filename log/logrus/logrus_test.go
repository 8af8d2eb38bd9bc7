package logrus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/stash"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Info("invalidated", stash.Fields{"key": "u:1"})
	l.Error("stash close", stash.Fields{"err": "pool busy"})
	l.Debug("quiet", nil)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)

	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "invalidated", entries[0].Message)
	assert.Equal(t, "u:1", entries[0].Data["key"])
	assert.Equal(t, "stash", entries[0].Data["component"])

	assert.Equal(t, logrus.ErrorLevel, entries[1].Level)
	assert.Equal(t, "pool busy", entries[1].Data["err"])

	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "quiet", hook.LastEntry().Message)
}
