package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "client.log")
	closeFn, err := Setup(Options{Level: "debug", File: path})
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	assert.Equal(t, log.DebugLevel, log.GetLevel())
	log.WithField("state", "NEW").Debug("state changed")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "state changed")
	assert.Contains(t, string(data), "state=NEW")
}

func TestSetupRejectsBadLevel(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestSetupDefaultsToInfo(t *testing.T) {
	closeFn, err := Setup(Options{})
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
