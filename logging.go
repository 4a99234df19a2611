// logging.go - structured, per-component logging

package flashback

import "github.com/sirupsen/logrus"

// logComponent wraps a logrus.Entry tagged with its owning component,
// matching the rest of the module's convention of fields over
// interpolated strings. Parse errors are always returned, never logged
// here; this exists for state transitions and recoverable anomalies
// (palette index out of range, unsupported opcode argument) a host may
// want surfaced without failing the operation.
type logComponent struct {
	entry *logrus.Entry
}

func newLogComponent(name string) *logComponent {
	return &logComponent{entry: logrus.WithField("component", name)}
}

func (l *logComponent) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logComponent) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logComponent) WithField(key string, value any) *logrus.Entry {
	return l.entry.WithField(key, value)
}
