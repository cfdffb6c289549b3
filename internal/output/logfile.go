package output

import (
	"os"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newRotatingWriter creates a lumberjack logger, with limits overridable
// through UPSYNC_LOG_MAX_SIZE (MB), UPSYNC_LOG_MAX_BACKUPS and UPSYNC_LOG_MAX_AGE (days).
func newRotatingWriter(logFilePath string) *lumberjack.Logger {
	config := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    5,
		MaxBackups: 2,
		MaxAge:     30,
	}

	if size, ok := envInt("UPSYNC_LOG_MAX_SIZE"); ok && size > 0 {
		config.MaxSize = size
	}
	if backups, ok := envInt("UPSYNC_LOG_MAX_BACKUPS"); ok && backups >= 0 {
		config.MaxBackups = backups
	}
	if age, ok := envInt("UPSYNC_LOG_MAX_AGE"); ok && age > 0 {
		config.MaxAge = age
	}
	return config
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
