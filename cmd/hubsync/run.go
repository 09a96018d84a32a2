package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/menuhub/hubsync/internal/api"
	"github.com/menuhub/hubsync/internal/cloudsync"
	"github.com/menuhub/hubsync/internal/events"
	"github.com/menuhub/hubsync/internal/hubclient"
	"github.com/menuhub/hubsync/internal/identity"
	"github.com/menuhub/hubsync/internal/infrastructure/config"
	"github.com/menuhub/hubsync/internal/infrastructure/database"
	"github.com/menuhub/hubsync/internal/infrastructure/influxdb"
	"github.com/menuhub/hubsync/internal/infrastructure/logging"
	"github.com/menuhub/hubsync/internal/infrastructure/mqtt"
	"github.com/menuhub/hubsync/internal/pairing"
	"github.com/menuhub/hubsync/internal/telemetry"
	"github.com/menuhub/hubsync/internal/transport"
	"github.com/menuhub/hubsync/internal/transport/rtctransport"
	"github.com/menuhub/hubsync/internal/transport/wstransport"
	"github.com/menuhub/hubsync/migrations"
)

// runOptions holds flags of the run command.
type runOptions struct {
	// pairCode connects to a hub at startup, for devices without a UI.
	pairCode string
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVar(&opts.pairCode, "pair", "", "pairing code to connect with at startup")
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the agent (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAgent(cmd.Context(), root, opts)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

// runAgent wires every component and blocks until ctx is cancelled.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - root: Global flags
//   - opts: Run flags
//
// Returns:
//   - error: nil on clean shutdown, or error describing the startup failure
func runAgent(ctx context.Context, root *rootOptions, opts *runOptions) error { //nolint:gocognit,gocyclo // Startup wiring is sequential
	log := logging.Default()
	log.Info("starting hubsync", "version", version, "commit", commit, "build_date", date)

	cfg, path, err := root.loadConfig()
	if err != nil {
		return err
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path, "transport", cfg.Hub.Transport)

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", cfg.Database.Path)

	ident := identity.NewManager(identity.NewSQLiteStore(db.DB), time.Now)
	desc, err := seedDevice(ctx, ident, cfg.Device)
	if err != nil {
		return err
	}
	log.Info("device identity loaded",
		"device_id", desc.DeviceID,
		"device_name", desc.DeviceName,
		"restaurant_id", desc.RestaurantID,
	)

	checks := map[string]api.HealthChecker{"database": db}

	bus := events.NewBus(log)
	defer bus.Close()

	// Cloud fallback (optional)
	var offline hubclient.OfflineHandler
	if cfg.Cloud.Enabled {
		mqttClient, fallback, cloudErr := connectCloud(cfg.Cloud, desc, log)
		if cloudErr != nil {
			return cloudErr
		}
		defer func() {
			log.Info("disconnecting from cloud broker")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks["cloud"] = mqttClient
		offline = fallback
	} else {
		log.Info("cloud fallback disabled")
	}

	// Telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB, map[string]string{
			"device_id":     desc.DeviceID,
			"restaurant_id": desc.RestaurantID,
		})
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		unsubscribe := bus.Subscribe(telemetry.NewRecorder(influxClient))
		defer unsubscribe()
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	factory, signaler, manual := buildTransport(cfg)
	client := hubclient.New(hubclient.Deps{
		Identity:   ident,
		Transports: factory,
		Signaler:   signaler,
		Events:     bus,
		Logger:     log,
		Reconnect:  buildReconnectPolicy(cfg.Hub.Reconnect),
		Validator:  buildValidator(cfg),
		Offline:    offline,
		Options: hubclient.Options{
			PingInterval:    cfg.GetPingInterval(),
			ConnectTimeout:  cfg.GetConnectTimeout(),
			SyncOnReconnect: cfg.Hub.SyncOnReconnect,
		},
	})
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing hub client", "error", closeErr)
		}
	}()

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Agent:   client,
		Device:  ident,
		Manual:  manual,
		Checks:  checks,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	unsubscribe := bus.Subscribe(server.Hub())
	defer unsubscribe()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if opts.pairCode != "" {
		go func() {
			if pairErr := client.ConnectToHub(ctx, opts.pairCode); pairErr != nil {
				log.Warn("startup pairing failed", "error", pairErr)
			}
		}()
	}

	log.Info("hubsync ready", "api", server.Addr())
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// openStore opens the device database and applies pending migrations.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// seedDevice applies configured descriptor fields and returns the result,
// generating the device id on first start.
func seedDevice(ctx context.Context, ident *identity.Manager, cfg config.DeviceConfig) (identity.Descriptor, error) {
	if err := ident.SetInfo(ctx, identity.Info{
		DeviceName:   cfg.Name,
		DeviceRole:   cfg.Role,
		RestaurantID: cfg.RestaurantID,
	}); err != nil {
		return identity.Descriptor{}, fmt.Errorf("seeding device identity: %w", err)
	}
	desc, err := ident.Descriptor(ctx)
	if err != nil {
		return identity.Descriptor{}, fmt.Errorf("loading device identity: %w", err)
	}
	return desc, nil
}

// connectCloud connects to the cloud broker with presence for this device
// and returns the fallback that publishes through it.
func connectCloud(cfg config.CloudConfig, desc identity.Descriptor, log *logging.Logger) (*mqtt.Client, *cloudsync.Fallback, error) {
	if desc.RestaurantID == "" {
		return nil, nil, fmt.Errorf("cloud fallback requires device.restaurant_id")
	}

	client, err := mqtt.Connect(cfg, mqtt.Presence{
		RestaurantID: desc.RestaurantID,
		DeviceID:     desc.DeviceID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to cloud broker: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("cloud broker reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("cloud broker disconnected", "error", err)
	})
	log.Info("cloud broker connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)

	fallback := cloudsync.New(client, cloudsync.Options{
		RestaurantID: desc.RestaurantID,
		DeviceID:     desc.DeviceID,
		QoS:          byte(cfg.QoS), //nolint:gosec // Validated to 0..2
		Now:          time.Now,
	}, log)
	return client, fallback, nil
}

// buildTransport selects the session transport and signalling. The manual
// signaler is returned separately so the API can expose it.
func buildTransport(cfg *config.Config) (transport.Factory, transport.Signaler, *transport.ManualSignaler) {
	if cfg.Hub.Transport == "websocket" {
		return wstransport.Factory(nil, nil), transport.DirectSignaler{}, nil
	}

	factory := rtctransport.Factory(cfg.Hub.ICEServers)
	if cfg.Hub.Signaling == "manual" {
		manual := transport.NewManualSignaler()
		return factory, manual, manual
	}
	return factory, transport.NewHTTPSignaler(&http.Client{Timeout: cfg.GetConnectTimeout()}), nil
}

func buildReconnectPolicy(cfg config.ReconnectConfig) hubclient.ReconnectPolicy {
	if cfg.Policy == "backoff" {
		return hubclient.Backoff{
			Initial:     time.Duration(cfg.InitialDelay) * time.Second,
			Max:         time.Duration(cfg.MaxDelay) * time.Second,
			MaxAttempts: cfg.MaxAttempts,
		}
	}
	return hubclient.FixedInterval{
		Interval:    time.Duration(cfg.Interval) * time.Second,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// buildValidator returns nil when no offer checks are configured.
func buildValidator(cfg *config.Config) pairing.Validator {
	if age := cfg.GetMaxOfferAge(); age > 0 {
		return pairing.MaxAge(age, time.Now)
	}
	return nil
}
