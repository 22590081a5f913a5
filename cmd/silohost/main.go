package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/silobase/silohost/internal/logger"
	"github.com/silobase/silohost/pkg/config"
	"github.com/silobase/silohost/pkg/silo"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	initConfig := flag.Bool("init", false, "Write an example config file and exit")
	flag.Parse()

	if *initConfig {
		path := *configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.WriteExample(path); err != nil {
			log.Fatalf("Failed to write example config: %v", err)
		}
		fmt.Printf("Example config written to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flag wins over config file
	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.SetLevel(level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Misconfiguration is fatal: abort startup rather than run half-wired
	reg, err := config.BuildRegistry(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to resolve grain configuration: %v", err)
	}

	host, err := silo.NewHost(silo.HostConfig{
		SiloName:  cfg.Server.SiloName,
		ClusterID: cfg.Grains.ClusterID,
		ServiceID: cfg.Grains.ServiceID,
	}, reg)
	if err != nil {
		log.Fatalf("Failed to create silo host: %v", err)
	}

	hostDone := make(chan error, 1)
	go func() {
		hostDone <- host.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Silo host is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-hostDone; err != nil {
			logger.Error("Host shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Host stopped gracefully")

	case err := <-hostDone:
		if err != nil {
			logger.Error("Host error: %v", err)
			os.Exit(1)
		}
		logger.Info("Host stopped")
	}
}
