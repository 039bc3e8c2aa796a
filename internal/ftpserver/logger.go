package ftpserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driveftp/driveftp/internal/logging"
)

// zapLogger adapts the global zap logger to goftp's server.Logger.
type zapLogger struct{}

func (zapLogger) Print(sessionID string, message interface{}) {
	logging.Debug("ftp", zap.String("session", sessionID), zap.Any("message", message))
}

func (zapLogger) Printf(sessionID string, format string, v ...interface{}) {
	logging.Debug("ftp", zap.String("session", sessionID), zap.String("message", fmt.Sprintf(format, v...)))
}

func (zapLogger) PrintCommand(sessionID string, command string, params string) {
	if command == "PASS" {
		params = "******"
	}
	logging.Debug("ftp command",
		zap.String("session", sessionID),
		zap.String("command", command),
		zap.String("params", params))
}

func (zapLogger) PrintResponse(sessionID string, code int, message string) {
	logging.Debug("ftp response",
		zap.String("session", sessionID),
		zap.Int("code", code),
		zap.String("message", message))
}
