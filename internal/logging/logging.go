// Package logging builds the logfmt loggers shared by the commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// New returns a logfmt logger writing to w that drops records below lvl
// (debug, info, warn or error).
func New(w io.Writer, lvl string) (kitlog.Logger, error) {
	opt, err := levelOption(lvl)
	if err != nil {
		return nil, err
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	logger = level.NewFilter(logger, opt)
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	return logger, nil
}

// Stderr is New over os.Stderr, keeping stdout free for command output.
func Stderr(lvl string) (kitlog.Logger, error) {
	return New(os.Stderr, lvl)
}

// Subsystem tags every record of logger with the emitting subsystem.
func Subsystem(logger kitlog.Logger, name string) kitlog.Logger {
	if logger == nil {
		return kitlog.NewNopLogger()
	}
	return kitlog.With(logger, "subsys", name)
}

func levelOption(lvl string) (level.Option, error) {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn", "warning":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	case "none":
		return level.AllowNone(), nil
	default:
		return nil, fmt.Errorf("unknown log level %q", lvl)
	}
}
