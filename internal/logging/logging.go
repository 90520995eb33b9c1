// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the global logger at stderr and, when file is set, a rotating
// log file. The returned writer goes to the same places without console
// formatting, for middleware that writes its own plain lines.
func Setup(level, file string) (io.Writer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	events := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	plain := []io.Writer{os.Stderr}
	if file != "" {
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		events = append(events, rotating)
		plain = append(plain, rotating)
	}

	log.Logger = log.Output(io.MultiWriter(events...)).With().Timestamp().Caller().Logger()
	return io.MultiWriter(plain...), nil
}
