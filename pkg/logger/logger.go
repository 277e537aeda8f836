package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	Configure(os.Getenv("ENVIRONMENT"), os.Getenv("LOG_LEVEL"))
}

// Configure rebuilds the package logger. Development gets a console writer,
// everything else gets JSON on stdout.
func Configure(environment, level string) {
	var out io.Writer = os.Stdout
	if environment == "" || environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	SetOutput(out)
	SetLevel(level, environment)
}

func SetOutput(w io.Writer) {
	log = zerolog.New(w).With().Timestamp().Logger()
}

func SetLevel(level, environment string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
		if environment == "" || environment == "development" {
			lvl = zerolog.DebugLevel
		}
	}
	log = log.Level(lvl)
}

// Get returns the underlying structured logger.
func Get() *zerolog.Logger {
	return &log
}

// With returns a child logger carrying key=value, e.g. logger.With("component", "ws-hub").
func With(key, value string) zerolog.Logger {
	return log.With().Str(key, value).Logger()
}

func Info(format string, v ...interface{}) {
	log.Info().Msg(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	log.Error().Msg(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	log.Debug().Msg(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	log.Warn().Msg(fmt.Sprintf(format, v...))
}

// LogTransactionError records a failed transaction operation with its identifiers.
func LogTransactionError(transactionID, action string, err error) {
	log.Warn().
		Str("transaction_id", transactionID).
		Str("action", action).
		Err(err).
		Msg("transaction operation failed")
}
