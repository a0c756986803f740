// Package slowlog is the logging facade used throughout slowmesh. It
// follows the otus-style split of a small interface plus one concrete
// backend, so call sites depend on the interface rather than on logrus
// directly.
package slowlog

// Fields attaches structured context to a log line.
type Fields map[string]interface{}

// Logger is the logging surface every slowmesh component depends on.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
}
