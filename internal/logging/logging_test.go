package logging

import (
	"bytes"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/pageza/macrolog/backend/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, &buf)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.WithField("user_id", "u1").Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "u1", entry["user_id"])
}

func TestNewLoggerBadLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "loud"}, &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestNewLoggerLogstashHook(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	var buf bytes.Buffer
	logger := newLogger(&config.Config{LogLevel: "info", LogstashAddr: pc.LocalAddr().String()}, &buf)
	assert.NotEmpty(t, logger.Hooks[logrus.InfoLevel])

	logger.Info("shipped")
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	packet := make([]byte, 4096)
	n, _, err := pc.ReadFrom(packet)
	require.NoError(t, err)
	assert.Contains(t, string(packet[:n]), "shipped")
	assert.Contains(t, string(packet[:n]), serviceName)
}
