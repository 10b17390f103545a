package app

import (
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/service"
	"github.com/sirupsen/logrus"
)

type App struct {
	*service.Service
	config.Config
	Log *logrus.Logger
}
