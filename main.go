package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/clipdeck/clipdeck/internal"
	"github.com/clipdeck/clipdeck/pkg/logger"
	"github.com/mitchellh/go-homedir"
)

var log = logger.Get("Main")

// main loads the users Clipdeck configuration, constructs the server
// and runs it until an interrupt is received.
func main() {
	config := parseArgs()

	clipdeck, err := internal.New(config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise Clipdeck: %s\n", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go listenForInterrupt(cancel)

	if err := clipdeck.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Clipdeck exited with error: %s\n", err.Error())
		os.Exit(1)
	}
}

func parseArgs() internal.ClipdeckConfig {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	logLevel := flag.Int("log-level", int(logger.INFO.Level()), "minimum log level to output (0=verbose, 5=fatal)")
	flag.Parse()

	logger.SetMinLoggingLevel(*logLevel)

	config := internal.ClipdeckConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config from %s: %s\n", *configPath, err.Error())
		os.Exit(1)
	}

	return config
}

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "config.yaml"
	}

	return filepath.Join(home, ".config", "clipdeck", "config.yaml")
}

func listenForInterrupt(cancel context.CancelFunc) {
	exitChannel := make(chan os.Signal, 1)
	signal.Notify(exitChannel, os.Interrupt, syscall.SIGTERM)

	<-exitChannel
	log.Emit(logger.STOP, "Interrupt received, shutting down...\n")
	cancel()
}
