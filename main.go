package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ytget/yt-downloader-web/internal/config"
	"github.com/ytget/yt-downloader-web/internal/download"
	"github.com/ytget/yt-downloader-web/internal/engine"
	"github.com/ytget/yt-downloader-web/internal/logging"
	"github.com/ytget/yt-downloader-web/internal/model"
	"github.com/ytget/yt-downloader-web/internal/platform"
	"github.com/ytget/yt-downloader-web/internal/server"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "yt-downloader: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load("")
	if err != nil {
		return err
	}

	logger := logging.New(settings.Log)
	logger.Info("starting", "version", version)

	if err := platform.CreateDirectoryIfNotExists(settings.Download.Directory); err != nil {
		logger.Warn("failed to ensure downloads dir", "dir", settings.Download.Directory, "error", err)
	}

	binary := platform.FindYTDLP(settings.Download.YTDLPPath)
	logger.Info("using yt-dlp", "binary", binary)

	cli := engine.NewCLI(binary, logger.Named("engine"))
	lister := engine.NewNativePlaylist()
	lister.SetTimeout(settings.Download.ParseTimeout)

	hub := server.NewHub(logger.Named("hub"))
	resolver := download.NewResolver(cli, lister, logger.Named("resolver"))
	orchestrator := download.NewOrchestrator(cli, resolver, hub, logger.Named("orchestrator"), download.Options{
		MergeFormat:  settings.Download.MergeOutputFormat,
		EmitInterval: settings.Download.EmitInterval,
	})
	downloadSvc := download.NewService(orchestrator, hub, download.Defaults{
		OutputFolder: settings.Download.Directory,
		Resolution:   settings.Download.DefaultResolution,
	}, logger.Named("service"))

	tasksLog := logger.Named("tasks")
	downloadSvc.SetUpdateCallback(func(task model.BatchTask) {
		if task.Status.IsFinished() {
			tasksLog.Info("batch finished", "id", task.ID, "status", task.Status,
				"succeeded", task.Succeeded, "failed", task.Failed, "skipped", task.Skipped, "total", task.Total)
		}
	})

	srv := server.New(settings.Server, settings.Download.Directory, version, downloadSvc, hub, logger.Named("server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Server is running at: http://%s\n", settings.Server.Address())
	serveErr := srv.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := downloadSvc.Shutdown(shutdownCtx); err != nil {
		logger.Warn("downloads did not stop in time", "error", err)
	}

	return serveErr
}
