// Package main starts the GophCards terminal client: it loads the
// configuration, restores the saved session and runs the interactive shell.
package main

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atinyakov/GophCards/internal/client/api"
	"github.com/atinyakov/GophCards/internal/client/session"
	"github.com/atinyakov/GophCards/internal/client/shell"
	"github.com/atinyakov/GophCards/internal/client/storage"
	"github.com/atinyakov/GophCards/internal/config"
	"github.com/atinyakov/GophCards/internal/logger"
	"github.com/fatih/color"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.Parse()
	if err != nil {
		log.Fatal(err)
	}

	if options.ShowVersion {
		fmt.Printf("GophCards Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	// Initialize structured logging.
	lg := logger.New()
	if err := lg.InitFile(options.LogLevel, options.LogFile); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Log.Sync() }()
	zapLogger := lg.Log

	httpClient, err := api.NewHTTPClient(options.CAFile, options.Timeout)
	if err != nil {
		zapLogger.Fatal("cannot build HTTP client", zap.Error(err))
	}
	uploadClient, err := api.NewHTTPClient(options.CAFile, options.GenerateTimeout)
	if err != nil {
		zapLogger.Fatal("cannot build upload HTTP client", zap.Error(err))
	}
	client := api.New(options.APIURL, httpClient,
		api.WithUploadClient(uploadClient),
		api.WithLogger(zapLogger.Named("api")),
	)

	tokens := storage.NewTokenStore(options.TokenFile, nil)
	if options.TokenKey != "" {
		aead, err := storage.NewAEADFromPassphrase([]byte(options.TokenKey))
		if err != nil {
			zapLogger.Fatal("cannot derive token key", zap.Error(err))
		}
		tokens = storage.NewTokenStore(options.TokenFile, aead)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(client, tokens, zapLogger.Named("session"))
	sess.Init(ctx)

	sh := shell.New(shell.Config{
		In:           os.Stdin,
		Out:          color.Output,
		Session:      sess,
		API:          client,
		Logger:       zapLogger,
		CallbackAddr: options.CallbackAddr,
		NoColor:      color.NoColor,
	})
	if err := sh.Run(ctx); err != nil && ctx.Err() == nil {
		zapLogger.Error("shell stopped", zap.Error(err))
	}
}
