package config_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/retailtools/huecos_backend/config"
	"github.com/sirupsen/logrus"
)

func TestLogWarnFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.WarnLevel)

	config.LogWarn(logger, "scan_history.go", "SaveReport", "redis set", "cache write failed")

	out := buf.String()
	for _, want := range []string{
		`"level":"warning"`,
		`"module":"scan_history.go"`,
		`"funcName":"SaveReport"`,
		`"context":"redis set"`,
		"cache write failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}
