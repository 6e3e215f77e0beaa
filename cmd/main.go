package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchdogd/internal/handlers"
	"watchdogd/internal/health"
	"watchdogd/internal/logger"
	"watchdogd/internal/mmio"
	"watchdogd/internal/repository"
	"watchdogd/internal/repository/db"
	"watchdogd/internal/server"
	"watchdogd/internal/service"
	"watchdogd/internal/wdt"

	"github.com/spf13/viper"
)

const (
	defaultPetInterval = 1 * time.Second
	defaultTimeoutMS   = 30_000
	defaultRegSpan     = 0x100
	simPumpTick        = 100 * time.Millisecond
)

func main() {
	// load config.yml; the log level comes from it, so failures fall back to info
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// map the register window and claim the device
	win, err := openWindow(ctx, log)
	if err != nil {
		log.Fatalw("failed to open watchdog registers", "err", err)
	}
	timer, err := wdt.Claim(win, log.Named("wdt"))
	if err != nil {
		log.Fatalw("failed to claim watchdog", "err", err)
	}

	checks, err := buildChecks()
	if err != nil {
		log.Fatalw("failed to build health checks", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(conn)
	services := service.NewService(repos, service.Deps{
		Timer:        timer,
		Reset:        wdt.ForceReset,
		Checks:       checks,
		DisarmOnExit: viper.GetBool("watchdog.disarm_on_exit"),
		Auth: service.AuthConfig{
			SigningKey: viper.GetString("auth.signing_key"),
			TokenTTL:   viper.GetDuration("auth.token_ttl"),
		},
		Log: log,
	})
	apiHandler := handlers.NewHandler(services, log)

	// arm immediately when the daemon itself is what the timer guards
	if viper.GetBool("watchdog.arm_on_start") {
		ms := viper.GetUint64("watchdog.timeout_ms")
		if ms == 0 {
			ms = defaultTimeoutMS
		}
		st, err := services.Watchdog.Arm(ctx, time.Duration(ms)*time.Millisecond)
		if err != nil {
			log.Fatalw("failed to arm watchdog on start", "err", err, "timeout_ms", ms)
		}
		log.Infow("watchdog armed on start", "timeout_ms", ms, "granted_ms", st.IntervalMillis)
	}

	// start keepalive loop (via composed service)
	pet := viper.GetDuration("watchdog.pet_interval")
	if pet <= 0 {
		pet = defaultPetInterval
	}
	keepaliveDone := make(chan struct{})
	go func() {
		defer close(keepaliveDone)
		services.Keepalive.Run(ctx, pet)
	}()

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, keepaliveDone, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "watchdogd.db")
		dbPath = "watchdogd.db"
	}
	return db.InitDB(dbPath)
}

// openWindow builds the register window the controller drives: a /dev/mem
// mapping of the real device, or the in-process simulator for hosts without
// the hardware.
func openWindow(ctx context.Context, log *logger.Logger) (mmio.Window, error) {
	if driver := viper.GetString("device.driver"); driver == "" || driver == "sim" {
		sim := mmio.NewSimWindow()
		sim.SetExpireFunc(func() {
			// Real hardware would have pulled the reset line here.
			log.Fatalw("simulated watchdog expired; the machine would have reset")
		})
		go pumpSim(ctx, sim)
		log.Infow("using simulated watchdog device")
		return sim, nil
	}

	base := viper.GetUint64("device.base")
	size := viper.GetUint64("device.size")
	if base == 0 {
		compat := viper.GetString("device.compatible")
		if compat == "" {
			compat = "rockchip,rk30xx-wdt"
		}
		var err error
		base, size, err = mmio.ProbeDeviceTree(mmio.DeviceTreeRoot, compat)
		if err != nil {
			return nil, err
		}
		log.Infow("watchdog found in device tree", "compatible", compat, "base", base, "size", size)
	}
	if size == 0 {
		size = defaultRegSpan
	}
	return mmio.Map(base, size)
}

// pumpSim advances simulated time in step with the wall clock.
func pumpSim(ctx context.Context, sim *mmio.SimWindow) {
	t := time.NewTicker(simPumpTick)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			sim.Advance(now.Sub(last))
			last = now
		}
	}
}

// buildChecks assembles the configured health probes that gate petting.
func buildChecks() ([]health.Checker, error) {
	var checks []health.Checker

	if max := viper.GetFloat64("health.load.max"); max > 0 {
		checks = append(checks, &health.LoadChecker{Max: max})
	}
	if url := viper.GetString("health.http.url"); url != "" {
		checks = append(checks, &health.HTTPChecker{URL: url})
	}
	if endpoint := viper.GetString("health.modbus.endpoint"); endpoint != "" {
		mc, err := health.NewModbusChecker(health.ModbusConfig{
			Endpoint: endpoint,
			UnitID:   uint8(viper.GetUint("health.modbus.unit_id")),
			Register: uint16(viper.GetUint("health.modbus.register")),
			Timeout:  viper.GetDuration("health.modbus.timeout"),
		})
		if err != nil {
			return nil, err
		}
		checks = append(checks, mc)
	}
	return checks, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, keepaliveDone <-chan struct{}, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// Stop background goroutines and wait for the keepalive loop: it is the
	// one that disarms the hardware on the way out when configured to.
	cancel()
	select {
	case <-keepaliveDone:
	case <-time.After(5 * time.Second):
		log.Errorw("keepalive loop did not stop in time")
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
