package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/forestwatch-dev/forestwatch/internal/config"
	"github.com/forestwatch-dev/forestwatch/pkg/analysis"
	"github.com/forestwatch-dev/forestwatch/pkg/motion"
	"github.com/forestwatch-dev/forestwatch/pkg/server"
	"github.com/forestwatch-dev/forestwatch/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Long: `Start the HTTP/WebSocket server.

Configuration comes from forestwatch.json in the working directory
(or --config), with flags taking precedence.

Examples:
  forestwatch serve
  forestwatch serve --addr=0.0.0.0:9000
  forestwatch serve --config=staging.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, configPath)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Bind address (default from forestwatch.json)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to forestwatch.json")

	return cmd
}

func runServe(addr, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Addr()
	}

	logger := newLogger(cfg.Logging)

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Logger:   logger,
		Store:    store,
		Analyzer: analysis.NewAnalyzer(logger, analysis.WithLatency(cfg.AnalysisLatency())),
		Reporter: analysis.NewReporter(logger, cfg.AnalysisLatency()),
		Upload:   &upload.Config{MaxFileSize: cfg.MaxFileSize()},
	})
	defer srv.Close()

	// Expired temp uploads are swept in the background.
	sweeper := motion.NewLoop(logger)
	defer sweeper.Close()
	stopSweep := sweeper.Interval(10*time.Minute, func() {
		if n, err := store.Cleanup(time.Hour); err != nil {
			logger.Warn("upload sweep failed", "error", err)
		} else if n > 0 {
			logger.Info("swept expired uploads", "count", n)
		}
	})
	defer stopSweep()

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "name", cfg.Name)
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// newStore picks S3 or disk storage from the config.
func newStore(cfg *config.Config, logger *slog.Logger) (upload.Store, error) {
	if cfg.Upload.S3Bucket != "" {
		region := os.Getenv("AWS_REGION")
		if region == "" {
			return nil, fmt.Errorf("s3 storage configured but AWS_REGION is unset")
		}
		awsCfg := aws.Config{
			Region:      region,
			Credentials: aws.NewCredentialsCache(envCredentials{}),
		}
		logger.Info("using S3 upload storage", "bucket", cfg.Upload.S3Bucket, "region", region)
		return upload.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Upload.S3Bucket,
			cfg.Upload.S3Prefix, cfg.MaxFileSize()), nil
	}
	return upload.NewDiskStore(cfg.Upload.Dir, cfg.MaxFileSize())
}

// envCredentials resolves static credentials from the standard AWS
// environment variables.
type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, fmt.Errorf("AWS credentials not set in environment")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
