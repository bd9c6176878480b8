package app

import (
	"github.com/mbolis/survey-relay/config"
	"github.com/mbolis/survey-relay/relay"
)

type App struct {
	*relay.Relay
	config.Config
}
