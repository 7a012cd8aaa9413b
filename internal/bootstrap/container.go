package bootstrap

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/config"
	"campusreserve/internal/database"
	"campusreserve/internal/infra/blob"
	"campusreserve/internal/infra/cache"
	"campusreserve/internal/infra/mq"
	"campusreserve/internal/modules/admission"
	"campusreserve/internal/modules/inventory"
	"campusreserve/internal/modules/notification"
	"campusreserve/internal/modules/report"
	"campusreserve/internal/modules/reservation"
	"campusreserve/internal/pkg/jwt"
	"campusreserve/internal/pkg/logger"
	"campusreserve/internal/repository"
)

// BuildContainer wires the application graph. Optional infrastructure
// (Redis, RabbitMQ, S3) resolves to nil when it is not configured.
func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})
	do.Provide(inj, func(i *do.Injector) (*time.Location, error) {
		return do.MustInvoke[*config.Config](i).Location()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level, cfg.Log.Format)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		db, err := database.Connect(cfg.Database.DSN, database.Options{
			MaxOpen: cfg.Database.MaxOpen,
			MaxIdle: cfg.Database.MaxIdle,
		}, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(db); err != nil {
				return nil, err
			}
		}
		return db, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.NewRedis(cfg.Redis, do.MustInvoke[*zap.Logger](i)), nil
	})

	// RabbitMQ
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.RabbitMQ.Enabled {
			return nil, nil
		}
		return amqp.Dial(cfg.RabbitMQ.URL)
	})
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		conn := do.MustInvoke[*amqp.Connection](i)
		if conn == nil {
			return nil, nil
		}
		cfg := do.MustInvoke[*config.Config](i)
		return mq.NewPublisher(conn, cfg.RabbitMQ.Queue, do.MustInvoke[*zap.Logger](i)), nil
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		return blob.NewS3(context.Background(), do.MustInvoke[*config.Config](i))
	})

	// JWT
	do.Provide(inj, func(i *do.Injector) (*jwt.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return jwt.New(cfg.JWT.Secret, cfg.JWT.TTL), nil
	})

	// Notifications
	do.Provide(inj, func(i *do.Injector) (*notification.Dispatcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db := do.MustInvoke[*gorm.DB](i)
		sinks := []notification.Sink{
			notification.NewStoreSink(repository.NewNotificationRepository(db)),
		}
		if pub := do.MustInvoke[*mq.Publisher](i); pub != nil {
			sinks = append(sinks, notification.NewQueueSink(pub))
		}
		return notification.NewDispatcher(
			repository.NewUserRepository(db),
			do.MustInvoke[*zap.Logger](i),
			cfg.Notify.Timeout,
			sinks...,
		), nil
	})

	// Services
	do.Provide(inj, func(i *do.Injector) (*reservation.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var attachments reservation.AttachmentStore
		if s3 := do.MustInvoke[*blob.S3Deps](i); s3 != nil {
			attachments = s3
		}
		return reservation.NewService(
			do.MustInvoke[*gorm.DB](i),
			reservation.NewValidator(cfg.Rules, do.MustInvoke[*time.Location](i)),
			do.MustInvoke[*notification.Dispatcher](i),
			attachments,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*admission.Engine, error) {
		return admission.NewEngine(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*notification.Dispatcher](i),
			do.MustInvoke[*time.Location](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*inventory.Service, error) {
		return inventory.NewService(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*notification.Dispatcher](i),
			do.MustInvoke[*time.Location](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*report.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return report.NewService(
			repository.NewReservationRepository(do.MustInvoke[*gorm.DB](i)),
			cfg.Rules.OkStatesForReporting,
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*notification.Service, error) {
		return notification.NewService(repository.NewNotificationRepository(do.MustInvoke[*gorm.DB](i))), nil
	})

	// Handlers
	do.Provide(inj, func(i *do.Injector) (*reservation.Handler, error) {
		return reservation.NewHandler(do.MustInvoke[*reservation.Service](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*admission.Handler, error) {
		return admission.NewHandler(do.MustInvoke[*admission.Engine](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*inventory.Handler, error) {
		return inventory.NewHandler(do.MustInvoke[*inventory.Service](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*report.Handler, error) {
		return report.NewHandler(do.MustInvoke[*report.Service](i), do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*notification.Handler, error) {
		return notification.NewHandler(do.MustInvoke[*notification.Service](i)), nil
	})

	return inj
}

// Close releases the connections opened by the container.
func Close(inj *do.Injector) {
	log := do.MustInvoke[*zap.Logger](inj)
	if conn, err := do.Invoke[*amqp.Connection](inj); err == nil && conn != nil {
		if err := conn.Close(); err != nil {
			log.Warn("rabbitmq close failed", zap.Error(err))
		}
	}
	if rdb, err := do.Invoke[*redis.Client](inj); err == nil && rdb != nil {
		_ = rdb.Close()
	}
	if db, err := do.Invoke[*gorm.DB](inj); err == nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = log.Sync()
}
