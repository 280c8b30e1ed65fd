package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger instances for different log levels. They write to stderr until Init
// is called.
var (
	Audit = log.New(os.Stderr, "AUDIT: ", log.LstdFlags)
	Debug = log.New(os.Stderr, "DEBUG: ", log.LstdFlags)
	Error = log.New(os.Stderr, "ERROR: ", log.LstdFlags)
)

var (
	mu       sync.Mutex
	rotators []*lumberjack.Logger
)

// Init points the loggers at rotated files under dir/audit, dir/debug and
// dir/error.
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	audit, err := newRotator(dir, "audit")
	if err != nil {
		return err
	}
	debug, err := newRotator(dir, "debug")
	if err != nil {
		return err
	}
	errLog, err := newRotator(dir, "error")
	if err != nil {
		return err
	}

	closeLocked()
	rotators = []*lumberjack.Logger{audit, debug, errLog}

	Audit.SetOutput(audit)
	Debug.SetOutput(debug)
	// errors also go to stderr so they are visible without tailing files
	Error.SetOutput(io.MultiWriter(errLog, os.Stderr))
	return nil
}

// Close flushes and closes the rotated files and restores stderr output.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	Audit.SetOutput(os.Stderr)
	Debug.SetOutput(os.Stderr)
	Error.SetOutput(os.Stderr)
}

func closeLocked() {
	for _, r := range rotators {
		r.Close()
	}
	rotators = nil
}

// newRotator ensures dir/name exists and returns a rotating writer for it.
func newRotator(dir, name string) (*lumberjack.Logger, error) {
	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, os.ModePerm); err != nil {
		return nil, fmt.Errorf("could not create log directory %s: %w", sub, err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(sub, name+".log"),
		MaxSize:    1,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}, nil
}
