package logutil

import (
	"bytes"
	"testing"

	"github.com/pingcap/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigAdjust(t *testing.T) {
	t.Parallel()

	conf := Config{Level: " WARN "}
	require.NoError(t, conf.Adjust())
	require.Equal(t, "warn", conf.Level)
	require.Equal(t, "text", conf.Format)

	conf = Config{}
	require.NoError(t, conf.Adjust())
	require.Equal(t, NewDefaultConfig(), conf)

	conf = Config{Level: "loud"}
	require.ErrorContains(t, conf.Adjust(), "log.level")
	conf = Config{Format: "xml"}
	require.ErrorContains(t, conf.Adjust(), "log.format")
}

func TestInitLoggerWithWriteSyncer(t *testing.T) {
	var buffer bytes.Buffer
	err := InitLogger(&Config{Level: "warn"}, WithOutputWriteSyncer(zapcore.AddSync(&buffer)))
	require.NoError(t, err)

	log.L().Info("not written", zap.String("cluster-id", "c1"))
	log.L().Warn("executor timed out", zap.String("cluster-id", "c1"))
	require.NotContains(t, buffer.String(), "not written")
	require.Contains(t, buffer.String(), `["executor timed out"] [cluster-id=c1]`)
}
