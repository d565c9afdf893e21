// internal/handlers/server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/triadlab/triad/internal/pagesync"
	"github.com/triadlab/triad/internal/registry"
	"github.com/triadlab/triad/internal/room"
	"github.com/triadlab/triad/internal/signal"
	"github.com/triadlab/triad/internal/voice"
)

// Server bundles the services the HTTP and websocket handlers drive.
type Server struct {
	Rooms    *room.Service
	Voice    *voice.Service
	Registry *registry.Registry
	Relay    *signal.Relay
	Pages    *pagesync.Tracker
	Log      *logrus.Logger
}

func NewServer(rooms *room.Service, vs *voice.Service, logger *logrus.Logger) *Server {
	return &Server{
		Rooms:    rooms,
		Voice:    vs,
		Registry: registry.New(logger),
		Relay:    signal.NewRelay(logger),
		Pages:    pagesync.NewTracker(),
		Log:      logger,
	}
}
