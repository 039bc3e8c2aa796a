// driveftp server
//
// Features:
// - FTP access to a Google Drive folder tree
// - Background uploads with a tracked transfer registry
// - Prometheus metrics & structured logging (zap)
// - bcrypt-hashed FTP accounts
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/driveftp/driveftp/internal/config"
	"github.com/driveftp/driveftp/internal/drive"
	"github.com/driveftp/driveftp/internal/drivefs"
	"github.com/driveftp/driveftp/internal/events"
	"github.com/driveftp/driveftp/internal/ftpserver"
	"github.com/driveftp/driveftp/internal/logging"
	"github.com/driveftp/driveftp/internal/metrics"
	"github.com/driveftp/driveftp/internal/staging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	// Initialize structured logging
	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("driveftp server starting...",
		zap.Int("ftp_port", cfg.Port),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("root_folder", cfg.RootFolderID),
		zap.String("upload_mode", cfg.UploadMode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics listener
	go func() {
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			logging.Error("metrics server failed", zap.Error(err))
		}
	}()

	// Google Drive client
	authOpts, err := drive.AuthOptions(ctx, cfg.CredentialsFile, cfg.TokenFile)
	if err != nil {
		logging.Fatal("drive auth failed", zap.Error(err))
	}
	client, err := drive.NewGoogleClient(ctx, authOpts...)
	if err != nil {
		logging.Fatal("drive client failed", zap.Error(err))
	}

	// Staging store for background uploads
	store, err := staging.NewStore(cfg.StagingDir)
	if err != nil {
		logging.Fatal("staging store failed", zap.Error(err))
	}

	// Transfer events: log upload outcomes the original caller never sees
	bus := events.NewBroadcaster()
	sub := bus.Subscribe()
	go func() {
		for e := range sub {
			switch e.Type {
			case events.EventUploadFailed:
				logging.Error("upload failed",
					zap.String("path", e.Path),
					zap.String("file_id", e.FileID),
					zap.String("error", e.Error))
			case events.EventUploadComplete:
				logging.Info("upload complete",
					zap.String("path", e.Path),
					zap.Int64("size", e.Size))
			}
		}
	}()

	// Filesystem adapter
	adapter := drivefs.New(client, store, bus, drivefs.Options{
		RootID:       cfg.RootFolderID,
		DeferUploads: cfg.DeferUploads(),
	})

	// FTP accounts
	users, err := loadUsers(cfg)
	if err != nil {
		logging.Fatal("ftp users failed", zap.Error(err))
	}

	// FTP server
	srv, err := ftpserver.NewServer(ftpserver.Config{
		Hostname:     cfg.Hostname,
		Port:         cfg.Port,
		PublicIP:     cfg.PublicIP,
		PassivePorts: cfg.PassivePorts,
	}, adapter, users)
	if err != nil {
		logging.Fatal("ftp server failed", zap.Error(err))
	}

	go func() {
		logging.Info("ftp server listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil {
			logging.Error("ftp server stopped", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("shutting down", zap.String("signal", sig.String()))

	if err := srv.Shutdown(); err != nil {
		logging.Error("ftp shutdown error", zap.Error(err))
	}

	// Give in-flight background transfers a moment to land; they are not
	// cancelled, only no longer observed.
	deadline := time.Now().Add(10 * time.Second)
	for adapter.ActiveTransfers() > 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if n := adapter.ActiveTransfers(); n > 0 {
		logging.Warn("leaving transfers in flight", zap.Int("count", n))
	}

	adapter.Close()
	bus.Unsubscribe(sub)
	logging.Info("driveftp server stopped")
}

func loadUsers(cfg *config.Config) (*ftpserver.UserStore, error) {
	if cfg.UsersFile != "" {
		return ftpserver.LoadUsers(cfg.UsersFile)
	}
	users := ftpserver.NewUserStore()
	if err := users.AddPassword(cfg.FTPUser, cfg.FTPPassword); err != nil {
		return nil, err
	}
	return users, nil
}
