package core

import (
	"fmt"

	"github.com/ngocvu/shopdash/internal/config"
	"github.com/ngocvu/shopdash/internal/gateway"
	"github.com/ngocvu/shopdash/internal/jobs"
	"github.com/ngocvu/shopdash/internal/pricelogs"
	"github.com/ngocvu/shopdash/internal/websocket"
	"github.com/ngocvu/shopdash/internal/workflow"
)

// App holds the core components of the application. Configuration is loaded
// once here and passed by reference into every constructor; nothing reads
// the environment after startup.
type App struct {
	cfg        *config.Config
	gateway    *gateway.Client
	hub        *websocket.Hub
	jobManager *jobs.Manager
	relay      *LogRelay
	session    *workflow.Session
	version    string
}

// New sets up and returns a new App instance. It loads the configuration
// and wires the gateway, websocket hub, log relay, and workflow session.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg, version), nil
}

// NewWithConfig wires an App around an already-built configuration. Tests
// use this to inject stub backends.
func NewWithConfig(cfg *config.Config, version string) *App {
	app := &App{
		cfg:     cfg,
		version: version,
	}
	app.gateway = gateway.New(cfg)
	app.hub = websocket.NewHub()
	go app.hub.Run()

	app.relay = NewLogRelay(cfg, app.gateway, app.hub)
	app.session = workflow.NewSession(app.gateway, app.relay)

	app.jobManager = jobs.NewManager(app)
	pricelogs.RegisterJob(app.jobManager, pricelogs.New(app.gateway, app.hub))

	return app
}

func (a *App) Config() *config.Config     { return a.cfg }
func (a *App) Gateway() *gateway.Client   { return a.gateway }
func (a *App) WsHub() *websocket.Hub      { return a.hub }
func (a *App) JobManager() *jobs.Manager  { return a.jobManager }
func (a *App) LogRelay() *LogRelay        { return a.relay }
func (a *App) Session() *workflow.Session { return a.session }
func (a *App) Version() string            { return a.version }

// Close releases the application's long-lived resources, currently just the
// upstream log stream connection.
func (a *App) Close() {
	if a.relay != nil {
		a.relay.Close()
	}
}
