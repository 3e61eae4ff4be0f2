package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mentorship-system/internal/config"
	"github.com/iliyamo/mentorship-system/internal/database"
	"github.com/iliyamo/mentorship-system/internal/queue"
	"github.com/iliyamo/mentorship-system/internal/repository"
	"github.com/iliyamo/mentorship-system/internal/scheduler"
	"github.com/iliyamo/mentorship-system/internal/service"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	cfg      config.Config
	db       *sqlx.DB // nil with the memory driver
	store    repository.Store
	rdb      *redis.Client // nil when Redis is off or unreachable
	notifier service.Notifier

	users     *service.UserService
	relations *service.RelationService
	tasks     *service.TaskService
	comments  *service.CommentService
	admins    *service.AdminService
	sweep     *service.ExpirationSweep
	purge     *service.UnverifiedUserPurge
}

// newApp opens the store selected by DB_DRIVER and builds the services.
// With migrate set the MySQL schema is applied first.
func newApp(ctx context.Context, cfg config.Config, migrate bool) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.DBDriver {
	case config.DriverMemory:
		log.Printf("store: using in-memory store, data is lost on exit")
		a.store = repository.NewMemoryStore()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if migrate {
			if err := database.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		a.db = db
		a.store = repository.NewMySQLStore(db)
	}

	a.rdb = config.NewRedisClient(cfg.Redis)

	if cfg.MockEmail {
		a.notifier = service.LogNotifier{}
	} else {
		a.notifier = queue.NewPublisher(cfg.RabbitMQURL)
	}

	a.users = service.NewUserService(a.store, a.notifier, nil, service.UserConfig{
		TokenSecret:     cfg.JWTSecret,
		EmailTokenTTL:   cfg.EmailTokenTTL,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		BcryptCost:      cfg.BcryptCost,
	})
	a.relations = service.NewRelationService(a.store, a.notifier, nil)
	a.tasks = service.NewTaskService(a.store, nil)
	a.comments = service.NewCommentService(a.store, nil)
	a.admins = service.NewAdminService(a.store)
	a.sweep = service.NewExpirationSweep(a.store, nil)
	a.purge = service.NewUnverifiedUserPurge(a.store, nil, cfg.UnverifiedUserThreshold)
	return a, nil
}

// newScheduler coordinates runs through Redis when it is available.
func (a *app) newScheduler() *scheduler.Scheduler {
	if a.rdb == nil {
		return scheduler.New()
	}
	return scheduler.New(scheduler.WithLocker(scheduler.NewRedisLocker(a.rdb, a.cfg.RateLimit.Prefix)))
}

// scheduler returns a scheduler with both maintenance jobs registered.
func (a *app) scheduler() (*scheduler.Scheduler, error) {
	s := a.newScheduler()
	if err := s.Register(a.cfg.SweepSchedule, a.sweep); err != nil {
		return nil, err
	}
	if err := s.Register(a.cfg.PurgeSchedule, a.purge); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Printf("redis: close: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("database: close: %v", err)
		}
	}
}
