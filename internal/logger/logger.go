package logger

import (
	"io"
	"log/slog"
	"os"
)

// InitLogger initializes the application logger for the given environment.
// Development gets debug level with source locations; logJSON selects the
// JSON handler over the text one. The logger becomes the slog default.
func InitLogger(environment string, logJSON bool) *slog.Logger {
	return initLogger(os.Stdout, environment, logJSON)
}

// InitCLILogger configures logging for the interactive client. Output goes to
// stderr so it never interleaves with command output, and only warnings are
// shown unless verbose is set.
func InitCLILogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func initLogger(w io.Writer, environment string, logJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if environment == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	var handler slog.Handler
	if logJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
