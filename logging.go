package egnosgo

import "github.com/sirupsen/logrus"

// nopLogger discards everything, used when an Engine is constructed
// without an injected logger so the engine stays usable as a pure
// library (SPEC_FULL.md 2.1), matching the default-logger pattern in
// bramburn-gnssgo/pkg/server's constructors.
func nopLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
