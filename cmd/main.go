package main

import (
	"os"
	"os/signal"
	"syscall"

	"ReportMapper/api"
	"ReportMapper/internal/appmanager"
	"ReportMapper/internal/config"
	"ReportMapper/internal/logger"
)

func main() {
	log := logger.L()

	// Load .env for local dev (ignored when the host injects the environment)
	settings, err := config.Load(".env", "../.env")
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	appmanager.Configure(settings)

	manager := appmanager.NewAppManager()

	// Load service configs from YAML
	servicesCfg, err := appmanager.LoadServiceSequence(settings.ServicesFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load service sequence")
	}

	manager.AutoRegisterServices(servicesCfg)
	manager.WireServices()

	if err := manager.StartAll(); err != nil {
		log.WithError(err).Error("failed to start")
		_ = manager.StopAll()
		os.Exit(1)
	}

	var serverErr <-chan error
	if gw, ok := manager.GetServiceByName("gateway").(*api.GatewayService); ok {
		serverErr = gw.Err()
	}

	// Graceful shutdown handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigs:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		log.WithError(err).Error("gateway stopped unexpectedly")
	}

	if err := manager.StopAll(); err != nil {
		log.WithError(err).Fatal("failed to stop")
	}
}
