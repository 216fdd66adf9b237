// ABOUTME: Entry point for the soundbridge player
// ABOUTME: Loads configuration, opens an audio backend and plays tones or files through the bridge
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vimeo/dials"
	"github.com/vimeo/dials/sources/env"
	"github.com/vimeo/dials/sources/flag"

	"github.com/Resonate-Protocol/soundbridge/internal/app"
	"github.com/Resonate-Protocol/soundbridge/internal/version"
	"github.com/Resonate-Protocol/soundbridge/pkg/audio/output"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// an optional .env supplies environment defaults
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	config := app.DefaultConfig()
	flagSrc, err := flag.NewCmdLineSet(flag.DefaultFlagNameConfig(), config)
	if err != nil {
		return err
	}
	d, err := dials.Config(ctx, config, &env.Source{}, flagSrc)
	if err != nil {
		return err
	}
	config = d.View()

	// Set up logging: stdout and the log file
	if config.LogFile != "" {
		f, err := os.OpenFile(config.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s (backend %s)", version.String(), config.Backend)

	out, err := output.New(config.Backend)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Printf("Error closing %s backend: %v", out.Name(), err)
		}
	}()

	player := app.New(*config, out)
	if err := player.Start(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		log.Printf("Shutdown signal received")
		player.Stop()
	}()

	waitErr := player.Wait()
	return errors.Join(waitErr, player.Stop())
}
