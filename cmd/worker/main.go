package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/forgelink/forgelink/internal/redis"
	"github.com/forgelink/forgelink/internal/setup"
	"github.com/forgelink/forgelink/internal/setup/config"
	"github.com/forgelink/forgelink/internal/setup/logging"
	"github.com/forgelink/forgelink/internal/worker/core"
	"github.com/forgelink/forgelink/internal/worker/generate"
	"github.com/forgelink/forgelink/internal/worker/refresh"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// RefreshWorker sweeps stale suggestion caches on a schedule.
	RefreshWorker = "refresh"

	// GenerateWorker drains the generation job queue.
	GenerateWorker = "generate"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the forgelink suggestion workers",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   1,
				Usage:   "Number of workers to start",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  RefreshWorker,
				Usage: "Start suggestion cache refresh workers",
				Action: func(ctx context.Context, c *cli.Command) error {
					runWorkers(ctx, RefreshWorker, c.Int("workers"))
					return nil
				},
			},
			{
				Name:  GenerateWorker,
				Usage: "Start generation queue workers",
				Action: func(ctx context.Context, c *cli.Command) error {
					runWorkers(ctx, GenerateWorker, c.Int("workers"))
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show the last reported status of all workers",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return showStatuses(ctx)
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runWorkers starts multiple instances of a worker type.
func runWorkers(ctx context.Context, workerType string, count int64) {
	app, err := setup.InitializeApp(ctx, WorkerLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(ctx)

	// Stop all workers on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := range count {
		wg.Add(1)

		go func(workerID int64) {
			defer wg.Done()

			workerLogger := logging.GetWorkerLogger(
				fmt.Sprintf("%s_worker_%d", workerType, workerID),
				WorkerLogDir,
				app.Config.Debug.LogLevel,
			)

			var w interface{ Start(context.Context) }

			switch workerType {
			case RefreshWorker:
				reporter := core.NewStatusReporter(app.StatusClient, RefreshWorker, workerLogger)
				w = refresh.New(
					app.DB.Models().Suggestion(),
					app.Service,
					reporter,
					app.Config.Worker.BatchSize,
					time.Duration(app.Config.Worker.BatchDelay)*time.Second,
					app.Config.Worker.HourlySweepLimit,
					app.Config.Worker.NightlySweepHour,
					workerLogger,
				)
			case GenerateWorker:
				reporter := core.NewStatusReporter(app.StatusClient, GenerateWorker, workerLogger)
				w = generate.New(
					app.Queue,
					app.Service,
					reporter,
					app.Config.Worker.QueueBatchSize,
					app.Config.Retry.MaxJobAttempts,
					workerLogger,
				)
			default:
				log.Fatalf("Invalid worker type: %s", workerType)
			}

			runWorker(ctx, w, workerLogger)
		}(i)
	}

	log.Printf("Started %d %s workers", count, workerType)
	wg.Wait()
	log.Println("All workers have finished. Exiting.")
}

// showStatuses prints the last heartbeat of every worker without starting
// the full application.
func showStatuses(ctx context.Context) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	redisManager := redis.NewManager(&cfg.Redis, logger)

	defer redisManager.Close()

	statusClient, err := redisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return err
	}

	statuses, err := core.NewMonitor(statusClient, logger).GetAllStatuses(ctx)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Println("No workers have reported status")
		return nil
	}

	for _, status := range statuses {
		state := "healthy"

		switch {
		case status.Offline():
			state = "offline"
		case !status.IsHealthy:
			state = "unhealthy"
		}

		fmt.Printf("%-10s %s [%s] %s (%d%%) last seen %s\n",
			status.WorkerType, status.WorkerID, state,
			status.CurrentTask, status.Progress,
			status.LastSeen.Format(time.RFC3339))
	}

	return nil
}

// runWorker runs a single worker in a loop with error recovery.
func runWorker(ctx context.Context, w interface{ Start(context.Context) }, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping worker")
			return
		default:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("Worker execution failed",
							zap.String("worker_type", fmt.Sprintf("%T", w)),
							zap.Any("panic", r),
						)
						logger.Info("Restarting worker in 5 seconds...")
						time.Sleep(5 * time.Second)
					}
				}()

				logger.Info("Starting worker")
				w.Start(ctx)
			}()

			if ctx.Err() != nil {
				continue
			}

			logger.Warn("Worker stopped unexpectedly",
				zap.String("worker_type", fmt.Sprintf("%T", w)),
			)
			time.Sleep(5 * time.Second)
		}
	}
}
