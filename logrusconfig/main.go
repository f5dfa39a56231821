// Package logrusconfig builds the root logger of the driver. Every component logs through
// a child entry whose prefix names it.
package logrusconfig

import (
	"flag"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

var loglevel *int

// InitParam registers the -loglevel flag. It must be called before flag.Parse.
func InitParam() {
	loglevel = flag.Int("loglevel", int(logrus.InfoLevel), "The loglevel to use. Valid values are from 0 to 6. Higher values output more information")
}

func newFormatter() logrus.Formatter {
	f := new(prefixed.TextFormatter)
	f.TimestampFormat = "2006-01-02 15:04:05.000"
	f.FullTimestamp = true
	f.PrefixPadding = 10
	f.SpacePadding = 50
	return f
}

// GetLogger returns the root logger. The -loglevel flag takes precedence over level if it
// was registered.
func GetLogger(level logrus.Level) *logrus.Entry {
	logrus.ErrorKey = "$error"

	logger := logrus.New()
	if loglevel != nil {
		level = logrus.Level(*loglevel)
	}
	logger.SetLevel(level)
	logger.SetFormatter(newFormatter())
	return logrus.NewEntry(logger)
}

// Component returns a logger whose lines are prefixed with name
func Component(parent *logrus.Entry, name string) *logrus.Entry {
	return parent.WithField("prefix", name)
}
