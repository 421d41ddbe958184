package testutil

import (
	"io"

	"github.com/johnrirwin/devicedeck/internal/logging"
)

// NullLogger returns a logger that drops everything below error and writes nothing
func NullLogger() *logging.Logger {
	return logging.NewWithWriter(logging.LevelError, io.Discard)
}
