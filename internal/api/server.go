package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/menuhub/hubsync/internal/hubclient"
	"github.com/menuhub/hubsync/internal/identity"
	"github.com/menuhub/hubsync/internal/infrastructure/config"
	"github.com/menuhub/hubsync/internal/infrastructure/logging"
	"github.com/menuhub/hubsync/internal/protocol"
	"github.com/menuhub/hubsync/internal/transport"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight
// requests.
const gracefulShutdownTimeout = 10 * time.Second

// HubAgent is the hub session the API drives. *hubclient.Client
// satisfies it.
type HubAgent interface {
	ConnectToHub(ctx context.Context, raw string) error
	Disconnect(ctx context.Context) error
	Status() hubclient.Status
	PlaceOrder(ctx context.Context, order protocol.Order, items []protocol.Item) (hubclient.OrderResult, error)
	UpdateOrder(ctx context.Context, clientID string, updates map[string]any) (hubclient.OrderResult, error)
	RequestSync(ctx context.Context) error
}

// DeviceInfo reads and edits the stored device descriptor.
// *identity.Manager satisfies it.
type DeviceInfo interface {
	Descriptor(ctx context.Context) (identity.Descriptor, error)
	SetInfo(ctx context.Context, info identity.Info) error
}

// HealthChecker is implemented by the database, MQTT and InfluxDB
// clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger
	Agent  HubAgent
	Device DeviceInfo

	// Manual is set when hub answers are entered by hand; it enables the
	// pairing offer and answer endpoints.
	Manual *transport.ManualSignaler

	// Checks are reported by the health endpoint, keyed by name.
	Checks map[string]HealthChecker

	// Hub relays events to WebSocket clients. New creates one if nil.
	Hub     *Hub
	Version string
}

// Server is the local agent API used by the staff UI running on the same
// device.
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	agent   HubAgent
	device  DeviceInfo
	manual  *transport.ManualSignaler
	checks  map[string]HealthChecker
	hub     *Hub
	version string

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc

	// background owns pairings started without waiting for the result.
	background context.Context
}

// New creates a server. It is not listening until Start.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Agent == nil {
		return nil, fmt.Errorf("hub agent is required")
	}
	if deps.Device == nil {
		return nil, fmt.Errorf("device info is required")
	}

	logger := deps.Logger.With("component", "api")
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, logger)
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     logger,
		agent:      deps.Agent,
		device:     deps.Device,
		manual:     deps.Manual,
		checks:     deps.Checks,
		hub:        hub,
		version:    deps.Version,
		background: context.Background(),
	}, nil
}

// Hub returns the event relay. Subscribe it to the event bus.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the configured address and serves in the background.
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.background = srvCtx

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening for API: %w", err)
	}
	s.listener = ln
	s.logger.Info("api server listening", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops background work and shuts the listener down, waiting up
// to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("api server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
