package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/bootstrap"
	"campusreserve/internal/config"
	"campusreserve/internal/modules/admission"
	"campusreserve/internal/modules/inventory"
	"campusreserve/internal/modules/notification"
	"campusreserve/internal/modules/report"
	"campusreserve/internal/modules/reservation"
	"campusreserve/internal/pkg/jwt"
	"campusreserve/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	inj := bootstrap.BuildContainer()
	defer bootstrap.Close(inj)

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewRouter(router.RouterDeps{
		Config:              cfg,
		DB:                  do.MustInvoke[*gorm.DB](inj),
		Redis:               do.MustInvoke[*redis.Client](inj),
		Log:                 log,
		Tokens:              do.MustInvoke[*jwt.Service](inj),
		ReservationHandler:  do.MustInvoke[*reservation.Handler](inj),
		AdmissionHandler:    do.MustInvoke[*admission.Handler](inj),
		InventoryHandler:    do.MustInvoke[*inventory.Handler](inj),
		ReportHandler:       do.MustInvoke[*report.Handler](inj),
		NotificationHandler: do.MustInvoke[*notification.Handler](inj),
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Sugar().Infow("starting http server", "addr", addr, "env", cfg.App.Env, "timezone", cfg.App.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Sugar().Fatalw("listen error", "err", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Sugar().Errorw("server shutdown", "err", err)
	}
	log.Sugar().Info("server exited")
}
