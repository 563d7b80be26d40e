// Gray Logic Uplink - Device Cloud Connectivity Agent
//
// This is the main entry point for the uplink agent. The agent gives a
// field device a supervised path to its cloud hub:
//   - Network association over the local radio link
//   - TLS client identity anchored in a security element
//   - MQTT session with the hub, device-scoped topics
//   - Bounded command dispatch with one acknowledgement per command
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-uplink/internal/audit"
	"github.com/nerrad567/gray-logic-uplink/internal/broker"
	"github.com/nerrad567/gray-logic-uplink/internal/dispatch"
	"github.com/nerrad567/gray-logic-uplink/internal/identity"
	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-uplink/internal/lighting"
	"github.com/nerrad567/gray-logic-uplink/internal/netlink"
	"github.com/nerrad567/gray-logic-uplink/internal/retry"
	"github.com/nerrad567/gray-logic-uplink/internal/session"
	"github.com/nerrad567/gray-logic-uplink/internal/supervisor"
	"github.com/nerrad567/gray-logic-uplink/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/uplink.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Uplink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Initialise the device identity. This is the only hard halt in the
	// agent: without the security element there is no TLS identity, and a
	// device that cannot authenticate has nothing to supervise.
	element, err := openElement(cfg)
	if err != nil {
		return fmt.Errorf("opening security element: %w", err)
	}

	id, err := identity.NewProvider(element, cfg.Device.ID, cfg.Device.KeySlot).Initialize()
	if err != nil {
		return fmt.Errorf("initialising device identity: %w", err)
	}
	log.Info("device identity initialised",
		"device_id", id.DeviceID,
		"element_serial", id.Serial,
	)

	// Network link
	driver := &netlink.SystemDriver{
		Interface:   cfg.Network.Interface,
		JoinCommand: cfg.Network.JoinCommand,
	}
	link := netlink.New(driver, cfg.Network.SSID, cfg.Network.Passphrase,
		retry.Fixed(cfg.NetworkRetryInterval()), log)

	// TLS session keyed to the element identity, with certificate validity
	// checked against the link's clock (fails closed while unsynchronised).
	// The broker dials through it so every reconnect is a fresh handshake.
	secure := session.New(id, link.CurrentTime)

	// Broker session
	brokerSession := broker.New(broker.Config{
		Host:         cfg.Broker.Host,
		Port:         cfg.Broker.Port,
		DeviceID:     cfg.Device.ID,
		Secret:       cfg.Device.Secret,
		Keepalive:    cfg.KeepaliveInterval(),
		InboundQueue: cfg.Broker.InboundQueue,
	}, secure, retry.Fixed(cfg.BrokerRetryInterval()), log)
	defer func() {
		log.Info("closing broker session")
		brokerSession.Close()
	}()

	// Zone actuation
	zones := lighting.NewController(cfg.Zones, nil, log)
	log.Info("zone controller initialised", "zones", zones.ZoneCount())
	dispatcher := dispatch.New(zones, log)

	// Command history (optional)
	var recorder supervisor.Recorder
	if cfg.Audit.Enabled {
		store, openErr := audit.Open(audit.Config{
			Path:        cfg.Audit.Path,
			WALMode:     cfg.Audit.WALMode,
			BusyTimeout: cfg.Audit.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening command history store: %w", openErr)
		}
		defer func() {
			log.Info("closing command history store")
			if closeErr := store.Close(); closeErr != nil {
				log.Error("error closing command history store", "error", closeErr)
			}
		}()
		log.Info("command history enabled", "path", cfg.Audit.Path)
		recorder = store
	} else {
		log.Info("command history disabled")
	}

	// Telemetry (optional)
	var metrics supervisor.Metrics
	if cfg.Telemetry.Enabled {
		client, connErr := telemetry.Connect(cfg.Telemetry, cfg.Device.ID)
		if connErr != nil {
			return fmt.Errorf("connecting telemetry: %w", connErr)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := client.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		client.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
		metrics = client
	} else {
		log.Info("telemetry disabled")
	}

	// Supervision loop. Everything after this point is the loop's problem:
	// link drops, broker outages and publish failures are absorbed and
	// retried, never fatal.
	sup := supervisor.New(supervisor.Config{
		DeviceID:          cfg.Device.ID,
		PollInterval:      cfg.PollInterval(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
	}, link, brokerSession, dispatcher, recorder, metrics, log)

	log.Info("initialisation complete, entering supervision loop")

	if err := sup.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown signal received, cleaning up")
			return nil
		}
		return err
	}
	return nil
}

// openElement opens the device's security element.
//
// The software element stands in for the hardware part on platforms without
// one: it loads the device key from a PEM file when configured, otherwise
// generates an ephemeral key for bench use.
func openElement(cfg *config.Config) (identity.Element, error) {
	if cfg.Device.KeyFile != "" {
		return identity.LoadSoftwareElement(cfg.Device.ID, cfg.Device.KeyFile)
	}
	return identity.GenerateSoftwareElement(cfg.Device.ID)
}

// getConfigPath returns the configuration file path.
// Uses UPLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("UPLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
