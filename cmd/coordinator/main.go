package main

import (
	"context"
	"flag"
	"os"

	"github.com/Temutjin2k/ride-coordination/config"
	"github.com/Temutjin2k/ride-coordination/internal/app"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("ride-coordination", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	if logger.ValidateLogLevel(cfg.Log.Level) {
		log = logger.InitLogger(cfg.Log.ServiceName, cfg.Log.Level)
	}

	// Creating application
	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	// Running the application
	if err := application.Run(ctx); err != nil {
		log.Error(ctx, "application exited with error", err)
		os.Exit(1)
	}
}
