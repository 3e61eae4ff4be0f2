package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"github.com/iliyamo/mentorship-system/internal/config"
	"github.com/iliyamo/mentorship-system/internal/handler"
	"github.com/iliyamo/mentorship-system/internal/middleware"
	"github.com/iliyamo/mentorship-system/internal/queue"
	"github.com/iliyamo/mentorship-system/internal/router"
)

func serveCmd() *cobra.Command {
	var (
		migrate         bool
		shutdownTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduled jobs and the mail consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmdContext(cmd), config.Load(), migrate, shutdownTimeout)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before serving")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "time allowed for a graceful shutdown")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, migrate bool, shutdownTimeout time.Duration) error {
	a, err := newApp(ctx, cfg, migrate)
	if err != nil {
		return err
	}

	sched, err := a.scheduler()
	if err != nil {
		a.close()
		return err
	}
	sched.Start()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	if !cfg.MockEmail {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, queue.FileMailbox{Path: cfg.MailboxPath})
		go func() {
			if err := consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("notification-consumer: stopped: %v", err)
			}
		}()
	}

	var pinger handler.Pinger
	if a.db != nil {
		pinger = a.db
	}
	e := router.New(router.Handlers{
		Health:    handler.Health(pinger),
		Users:     handler.NewUserHandler(a.users),
		Relations: handler.NewRelationHandler(a.relations),
		Tasks:     handler.NewTaskHandler(a.tasks),
		Comments:  handler.NewCommentHandler(a.comments),
		Admins:    handler.NewAdminHandler(a.admins),
	}, middleware.JWTAuth(cfg.JWTSecret, nil), middleware.NewTokenBucket(cfg.RateLimit, a.rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
		"scheduler": func(ctx context.Context) error {
			return sched.Stop(ctx)
		},
		"notification-consumer": func(context.Context) error {
			stopConsumer()
			return nil
		},
	})
	code := <-wait
	// Stores go last; the server and the jobs above may still be using them.
	a.close()
	os.Exit(code)
	return nil
}
