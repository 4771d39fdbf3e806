package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uploader/internal/uploader/cleanup"
	"uploader/internal/uploader/core"
	"uploader/internal/uploader/events"
	"uploader/internal/uploader/queue"
	"uploader/internal/uploader/scheduler"
	"uploader/internal/uploader/transport"
	"uploader/pkg/config"
	"uploader/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload daemon",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	log := logger.WithField("component", "serve")
	log.Info("configuration loaded", "config", cfgPath, "queue", cfg.Queue.Path)

	store, err := queue.Open(cfg.Queue.Path)
	if err != nil {
		return fmt.Errorf("failed to open upload queue: %w", err)
	}

	client := transport.NewHTTPClient(cfg.Transport.Timeout)
	cleaner := cleanup.NewWorker(cfg.Cleanup.QueueSize)
	broadcaster := events.NewBroadcaster()

	// surface every upload status change in the daemon log
	statusCh, unsubscribe := broadcaster.Subscribe()
	go logEvents(statusCh)

	sched := scheduler.New(cfg.Scheduler.PollInterval, cfg.Scheduler.RetryInterval)
	orchestrator := core.New(store, client, cleaner, broadcaster, sched)
	sched.Attach(orchestrator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Run(ctx)

	orchestrator.Shutdown(cfg.Cleanup.StopTimeout)
	unsubscribe()
	broadcaster.Close()

	log.Info("daemon stopped")
	return nil
}

func logEvents(ch <-chan events.Event) {
	log := logger.WithField("component", "status")
	for event := range ch {
		if event.Error != nil {
			log.Info("upload status changed", "uploadId", event.UploadID,
				"status", string(event.Status), "error", event.Error.Error())
			continue
		}
		log.Info("upload status changed", "uploadId", event.UploadID, "status", string(event.Status))
	}
}
