package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

const (
	defaultLogFilePath  = "./logs/fileshare.log"
	defaultMaxSizeBytes = 20 * 1024 * 1024
	envLogFilePath      = "LOG_FILE_PATH"
	envLogMaxSizeMB     = "LOG_MAX_SIZE_MB"
	envLogFormat        = "LOG_FORMAT"
	envLogLevel         = "LOG_LEVEL"
	logFormatText       = "text"
	logFormatJSON       = "json"
	logFileDisabled     = "none"
)

var global = newLoggerFromEnv()

func newLoggerFromEnv() *charmlog.Logger {
	path := strings.TrimSpace(os.Getenv(envLogFilePath))
	if path == "" {
		path = defaultLogFilePath
	}

	maxSizeBytes := int64(defaultMaxSizeBytes)
	if raw := strings.TrimSpace(os.Getenv(envLogMaxSizeMB)); raw != "" {
		if sizeMB, err := strconv.Atoi(raw); err == nil && sizeMB > 0 {
			maxSizeBytes = int64(sizeMB) * 1024 * 1024
		}
	}

	var out io.Writer = os.Stdout
	if path != logFileDisabled {
		out = io.MultiWriter(os.Stdout, &rotatingFile{filePath: path, maxSizeBytes: maxSizeBytes})
	}
	return newLogger(out, os.Getenv(envLogFormat), os.Getenv(envLogLevel))
}

func newLogger(out io.Writer, format, level string) *charmlog.Logger {
	opts := charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
		ReportCaller:    true,
		CallerOffset:    1,
		Level:           charmlog.InfoLevel,
	}
	if strings.ToLower(strings.TrimSpace(format)) == logFormatJSON {
		opts.Formatter = charmlog.JSONFormatter
	} else {
		opts.Formatter = charmlog.TextFormatter
	}
	if lv, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil {
		opts.Level = lv
	}
	return charmlog.NewWithOptions(out, opts)
}

// SetOutput replaces the global sink. Tests use it to capture output.
func SetOutput(out io.Writer, format string) {
	global = newLogger(out, format, charmlog.DebugLevel.String())
}

func Debugf(format string, args ...any) {
	global.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	global.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	global.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	global.Errorf(format, args...)
}

// Exceptionf logs at error level and tags the line so unexpected failures
// can be filtered apart from ordinary request errors.
func Exceptionf(format string, args ...any) {
	global.Error(fmt.Sprintf(format, args...), "exception", true)
}

// rotatingFile is a size-capped append-only log file. Write never fails so a
// broken log directory cannot silence stdout behind io.MultiWriter.
type rotatingFile struct {
	mu           sync.Mutex
	filePath     string
	maxSizeBytes int64
	file         *os.File
}

func (l *rotatingFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureOpen(); err != nil {
		fmt.Fprintf(os.Stderr, "logger open file error: %v\n", err)
		return len(p), nil
	}
	if err := l.rotateIfNeeded(int64(len(p))); err != nil {
		fmt.Fprintf(os.Stderr, "logger rotate error: %v\n", err)
		return len(p), nil
	}
	if _, err := l.file.Write(p); err != nil {
		fmt.Fprintf(os.Stderr, "logger write error: %v\n", err)
	}
	return len(p), nil
}

func (l *rotatingFile) ensureOpen() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.filePath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

func (l *rotatingFile) rotateIfNeeded(incomingSize int64) error {
	stat, err := l.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size()+incomingSize <= l.maxSizeBytes {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}
	l.file = nil

	rotatedPath, err := nextRotatedPath(l.filePath, time.Now())
	if err != nil {
		return err
	}
	if err := os.Rename(l.filePath, rotatedPath); err != nil {
		return err
	}

	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

func nextRotatedPath(currentPath string, now time.Time) (string, error) {
	dir := filepath.Dir(currentPath)
	ext := filepath.Ext(currentPath)
	base := strings.TrimSuffix(filepath.Base(currentPath), ext)
	ts := now.Format("20060102_150405")

	for index := 1; ; index++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", base, ts, index, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
}
