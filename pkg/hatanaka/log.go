package hatanaka

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// noopLogger discards everything; it is the zero-value logger used when a
// Decompressor/Compressor is constructed without WithLogger.
var noopLogger logrus.FieldLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// WithLogger returns an Option that attaches a structured logger to a
// Decompressor/Compressor, tagging every entry with a fresh stream_id so log
// lines from concurrent streams can be told apart.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		streamID := uuid.New().String()
		o.logger = logger.WithField("stream_id", streamID)
	}
}

// Option configures a Decompressor or Compressor at construction time.
type Option func(*options)

type options struct {
	logger logrus.FieldLogger
}

func newOptions(opts ...Option) *options {
	o := &options{logger: noopLogger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
