package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	AppLogger    *logrus.Logger
	AccessLogger *logrus.Logger
	ErrorLogger  *logrus.Logger

	logLevel      string
	appLogPathCur string
	accessPathCur string
	appLogFile    *os.File
	accessLogFile *os.File
	initialized   bool
)

func parseLevel(level string) logrus.Level {
	switch level {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func newFileLogger(path, name string, level logrus.Level) (*logrus.Logger, *os.File, string) {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableColors:   true,
	})
	l.SetOutput(io.Discard)

	if path == "" {
		return l, nil, "(discarded)"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		ErrorLogger.Errorf("Failed to create %s log directory %s: %v. %s logs will be discarded.", name, filepath.Dir(path), err, name)
		return l, nil, "(discarded)"
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		ErrorLogger.Errorf("Failed to open %s log file %s: %v. %s logs will be discarded.", name, path, err, name)
		return l, nil, "(discarded)"
	}
	l.SetOutput(f)
	return l, f, path
}

// InitGlobalLoggers (re)opens the application and access log files. Errors are
// always mirrored to stderr. An empty path discards that log.
func InitGlobalLoggers(appLogPath, accessLogPath, level string) error {
	if initialized && strings.ToUpper(level) == logLevel && appLogPath == appLogPathCur && accessLogPath == accessPathCur {
		return nil
	}
	closeFiles()

	logLevel = strings.ToUpper(level)
	if logLevel == "" {
		logLevel = "INFO"
	}
	lvl := parseLevel(logLevel)

	ErrorLogger = logrus.New()
	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetLevel(logrus.ErrorLevel)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})

	appLogPathCur, accessPathCur = appLogPath, accessLogPath
	var appPath, accessPath string
	AppLogger, appLogFile, appPath = newFileLogger(appLogPath, "app", lvl)
	AccessLogger, accessLogFile, accessPath = newFileLogger(accessLogPath, "access", logrus.InfoLevel)

	if !initialized {
		AppLogger.Infof("App logger initialized. Log level: %s. Output file: %s", logLevel, appPath)
		AccessLogger.Infof("Access logger initialized. Output file: %s", accessPath)
	}
	initialized = true
	return nil
}

func Info(format string, v ...interface{}) {
	if AppLogger != nil {
		AppLogger.Infof(format, v...)
	}
}

func Debug(format string, v ...interface{}) {
	if AppLogger != nil {
		AppLogger.Debugf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if AppLogger != nil {
		AppLogger.Warnf(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	if ErrorLogger != nil {
		ErrorLogger.Error(message)
	}
	if AppLogger != nil && appLogFile != nil {
		AppLogger.Error(message)
	}
}

func Fatal(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	if ErrorLogger != nil {
		ErrorLogger.Fatal(message)
	}
	logrus.Fatal(message)
}

// SetErrorOutput redirects the stderr mirror of Error, e.g. to keep an
// interactive terminal clean. Errors still reach the app log.
func SetErrorOutput(w io.Writer) {
	if ErrorLogger != nil {
		ErrorLogger.SetOutput(w)
	}
}

// AccessInfo writes one structured access-log entry.
func AccessInfo(fields map[string]interface{}, msg string) {
	if AccessLogger != nil {
		AccessLogger.WithFields(logrus.Fields(fields)).Info(msg)
	}
}

func closeFiles() {
	if appLogFile != nil {
		appLogFile.Close()
		appLogFile = nil
	}
	if accessLogFile != nil {
		accessLogFile.Close()
		accessLogFile = nil
	}
}

func CloseLogFiles() {
	if appLogFile != nil {
		AppLogger.Info("Closing app log file.")
	}
	closeFiles()
	initialized = false // Allow re-initialization (e.g. tests)
}
