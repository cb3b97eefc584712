package chat

import (
	"time"

	"DevChat/tools/security"
)

// Server wires the gateway together: registry, presence broadcaster, message
// router, signal relay and the websocket endpoint. Everything is injected so
// tests can build a fresh instance per case; there is no process-wide state.
type Server struct {
	reg   *Registry
	dir   Directory
	bcast *Broadcaster
	disp  *Dispatcher

	jwtOpts       security.Options
	authWindow    time.Duration
	sendQueueSize int
}

type ServerConfig struct {
	JWTOpts       security.Options
	AuthWindow    time.Duration // bound on the unauthenticated handshake
	SendQueueSize int
}

func NewServer(cfg ServerConfig, reg *Registry, dir Directory, store MessageStore, mirror PresenceMirror) *Server {
	if cfg.AuthWindow <= 0 {
		cfg.AuthWindow = 10 * time.Second
	}
	router := NewRouter(reg, dir, store)
	relay := NewRelay(reg, dir)
	return &Server{
		reg:           reg,
		dir:           dir,
		bcast:         NewBroadcaster(reg, dir, mirror),
		disp:          NewDispatcher(router, relay),
		jwtOpts:       cfg.JWTOpts,
		authWindow:    cfg.AuthWindow,
		sendQueueSize: cfg.SendQueueSize,
	}
}

func (s *Server) Registry() *Registry { return s.reg }
