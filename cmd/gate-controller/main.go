// Command gate-controller drives a sliding-gate motor from a two-button remote,
// times its motion, reverses on overcurrent and publishes gate events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/sweeney/gate-controller/internal/current"
	"github.com/sweeney/gate-controller/internal/display"
	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/mqtt"
	"github.com/sweeney/gate-controller/internal/status"
	"github.com/sweeney/gate-controller/internal/store"
	"github.com/sweeney/gate-controller/internal/web"
)

type config struct {
	poll      time.Duration
	debounce  time.Duration
	heartbeat time.Duration

	pinA, pinB, pinDip int
	pinOpen, pinClose  int

	currentPort string
	currentBaud int
	displayPort string
	displayBaud int

	broker   string
	clientID string
	httpAddr string
	envFile  string

	storePath    string
	currentLimit float64
	lockout      time.Duration

	printState bool
}

func main() {
	var cfg config
	flag.DurationVar(&cfg.poll, "poll", 20*time.Millisecond, "Control cycle interval")
	flag.DurationVar(&cfg.debounce, "debounce", 50*time.Millisecond, "Input settle window")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.IntVar(&cfg.pinA, "pin-a", gpio.PinA, "BCM pin number for remote ButtonA")
	flag.IntVar(&cfg.pinB, "pin-b", gpio.PinB, "BCM pin number for remote ButtonB")
	flag.IntVar(&cfg.pinDip, "pin-dip", gpio.PinDip, "BCM pin number for the setup switch")
	flag.IntVar(&cfg.pinOpen, "pin-open", gpio.PinOpen, "BCM pin number for the open relay")
	flag.IntVar(&cfg.pinClose, "pin-close", gpio.PinClose, "BCM pin number for the close relay")
	flag.StringVar(&cfg.currentPort, "current-port", "/dev/ttyUSB0", `Current sensor serial port ("" for no sensor)`)
	flag.IntVar(&cfg.currentBaud, "current-baud", 9600, "Current sensor baud rate")
	flag.StringVar(&cfg.displayPort, "display-port", "/dev/ttyAMA0", `Serial LCD port ("" to log frames instead)`)
	flag.IntVar(&cfg.displayBaud, "display-baud", 9600, "Serial LCD baud rate")
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&cfg.clientID, "client-id", "gate-controller", "MQTT client ID")
	flag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&cfg.envFile, "env-file", "/run/pi-helper.env", "Network info env file written by pi-helper")
	flag.StringVar(&cfg.storePath, "store", "/var/lib/gate-controller/calibration.yaml", "Calibration store file")
	flag.Float64Var(&cfg.currentLimit, "current-limit", logic.DefaultCurrentLimit, "Obstruction current threshold in amps")
	flag.DurationVar(&cfg.lockout, "lockout", logic.DefaultObstructionLockout, "Minimum time between obstruction trips")
	flag.BoolVar(&cfg.printState, "print-state", false, "Print inputs and stored calibration, then exit")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) (err error) {
	// Outputs first, so the relays are idle as early as possible.
	driver, err := gpio.NewRealDriver(cfg.pinOpen, cfg.pinClose)
	if err != nil {
		return fmt.Errorf("init drive outputs: %w", err)
	}
	defer func() { err = multierr.Append(err, driver.Close()) }()

	reader, err := gpio.NewRealReader(cfg.pinA, cfg.pinB, cfg.pinDip)
	if err != nil {
		return fmt.Errorf("init inputs: %w", err)
	}
	defer func() { err = multierr.Append(err, reader.Close()) }()

	st, cal, storeStatus, requireSetup := openStore(cfg.storePath, logic.Calibration{
		DriveDuration:      logic.DefaultDriveDuration,
		AutocloseDelay:     logic.DefaultAutocloseDelay,
		CurrentLimit:       cfg.currentLimit,
		ObstructionLockout: cfg.lockout,
	})

	if cfg.printState {
		s, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read inputs: %w", err)
		}
		fmt.Printf("A: %s, B: %s, DIP: %s\n", pressed(s.A), pressed(s.B), onOff(s.Dip))
		fmt.Printf("calibration: drive=%v autoclose=%v store=%s\n", cal.DriveDuration, cal.AutocloseDelay, storeStatus)
		return nil
	}

	sampler, err := openSampler(cfg.currentPort, cfg.currentBaud)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sampler.Close()) }()

	sink, closer, err := openDisplay(cfg.displayPort, cfg.displayBaud)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { err = multierr.Append(err, closer.Close()) }()
	}

	publisher := mqtt.NewRealPublisher(cfg.broker, cfg.clientID)
	defer publisher.Close()

	start := time.Now()
	machine := logic.NewMachine(logic.Config{
		Calibration:  cal,
		RequireSetup: requireSetup,
		Persister:    store.Persister{Store: st},
	}, start)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(start, status.Config{
		PollMs:      cfg.poll.Milliseconds(),
		DebounceMs:  cfg.debounce.Milliseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Broker:      cfg.broker,
		HTTPAddr:    cfg.httpAddr,
		StorePath:   cfg.storePath,
	})
	tracker.SetStoreStatus(storeStatus)
	env := loadEnv(cfg.envFile)
	if net := readNetworkInfo(env); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: poll=%v debounce=%v drive=%v autoclose=%v limit=%.1fA store=%s",
		cfg.poll, cfg.debounce, cal.DriveDuration, cal.AutocloseDelay, cal.CurrentLimit, storeStatus)

	ticker := time.NewTicker(cfg.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	c := &controller{
		reader:     reader,
		driver:     driver,
		sampler:    sampler,
		sink:       sink,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		machine:    machine,
		debouncer:  logic.NewDebouncer(cfg.debounce),
		heartbeat:  cfg.heartbeat,
		env:        func() map[string]string { return loadEnv(cfg.envFile) },
	}
	return c.runLoop(time.Now, ticker.C, sigCh)
}

// openStore loads the calibration. An unusable store yields defaults and
// requires a fresh calibration before the gate will drive.
func openStore(path string, defaults logic.Calibration) (store.Store, logic.Calibration, string, bool) {
	fs, err := store.OpenFile(path)
	if err != nil {
		log.Printf("store: %v; calibration required", err)
		return store.NewFile(path), defaults, "CORRUPT", true
	}

	cal, loaded, err := store.LoadCalibration(fs, defaults)
	if err != nil {
		log.Printf("store: %v; calibration required", err)
		return fs, defaults, "CORRUPT", true
	}
	// Limit and lockout come from flags, not the store.
	cal.CurrentLimit = defaults.CurrentLimit
	cal.ObstructionLockout = defaults.ObstructionLockout
	return fs, cal, loaded.String(), false
}

func openSampler(port string, baud int) (current.Sampler, error) {
	if port == "" {
		log.Printf("current: no sensor configured, obstruction detection disabled")
		return current.None{}, nil
	}
	s, err := current.OpenSerial(port, baud)
	if err != nil {
		return nil, fmt.Errorf("init current sensor: %w", err)
	}
	return s, nil
}

func openDisplay(port string, baud int) (display.Sink, io.Closer, error) {
	if port == "" {
		return &display.LogSink{}, nil, nil
	}
	lcd, closer, err := display.OpenSerialLCD(port, baud)
	if err != nil {
		return nil, nil, fmt.Errorf("init display: %w", err)
	}
	return lcd, closer, nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// loadEnv reads the pi-helper env file. Values already in the process
// environment take precedence.
func loadEnv(path string) map[string]string {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("env file %s: %v", path, err)
		}
		env = map[string]string{}
	}
	for _, k := range []string{envNetworkType, envNetworkIP, envNetworkStatus, envNetworkGateway, envNetworkWifiStatus, envNetworkWifiSSID} {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env
}

func readNetworkInfo(env map[string]string) *status.NetworkInfo {
	s := env[envNetworkStatus]
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       env[envNetworkType],
		IP:         env[envNetworkIP],
		Status:     s,
		Gateway:    env[envNetworkGateway],
		WifiStatus: env[envNetworkWifiStatus],
		SSID:       env[envNetworkWifiSSID],
	}
}

func pressed(b bool) string {
	if b {
		return "PRESSED"
	}
	return "RELEASED"
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
