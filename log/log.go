package log

import (
	"os"

	"github.com/mbolis/quick-form/config"
	"github.com/sirupsen/logrus"
)

type Level logrus.Level

const (
	PanicLevel = Level(logrus.PanicLevel)
	FatalLevel = Level(logrus.FatalLevel)
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
	TraceLevel = Level(logrus.TraceLevel)
)

const serviceName = "form-service"

// New builds the process logger. main hands it to the database, service
// and HTTP layers; only a config error, raised before it exists, goes
// through logrus's package-level logger.
func New(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.Out = os.Stdout

	switch cfg.LogFormat {
	case config.FormatJSON:
		logger.Formatter = &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		}
		logger.AddHook(serviceHook{})
	default:
		logger.Formatter = &logrus.TextFormatter{
			DisableLevelTruncation: true,
			PadLevelText:           true,
			TimestampFormat:        "2006/01/02 15:04:05",
			FullTimestamp:          true,
		}
	}

	if cfg.Debug {
		logger.Level = logrus.DebugLevel
	}
	return logger
}

// serviceHook tags every JSON entry with the service name.
type serviceHook struct{}

func (serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = serviceName
	}
	return nil
}
