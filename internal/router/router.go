package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/config"
	"campusreserve/internal/middleware"
	"campusreserve/internal/modules/admission"
	"campusreserve/internal/modules/inventory"
	"campusreserve/internal/modules/notification"
	"campusreserve/internal/modules/report"
	"campusreserve/internal/modules/reservation"
	"campusreserve/internal/pkg/jwt"
	"campusreserve/internal/pkg/response"
)

type RouterDeps struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Log    *zap.Logger
	Tokens *jwt.Service

	ReservationHandler  *reservation.Handler
	AdmissionHandler    *admission.Handler
	InventoryHandler    *inventory.Handler
	ReportHandler       *report.Handler
	NotificationHandler *notification.Handler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.ZapLogger(d.Log),
		middleware.Recovery(d.Log),
		middleware.CORS(d.Config.App.CORSOrigins),
	)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			response.Error(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database is not reachable")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(
		middleware.JWTAuth(d.Tokens),
		middleware.RateLimit(d.Config.RateLimit, d.Redis, d.Log),
	)
	{
		// Write routes for spaces and resources share paths with the reads
		// but require the admin role.
		adminOnly := v1.Group("", middleware.AdminOnly())
		admin := v1.Group("/admin", middleware.AdminOnly())

		d.InventoryHandler.RegisterRoutes(v1, adminOnly)
		d.ReservationHandler.RegisterRoutes(v1)
		d.NotificationHandler.RegisterRoutes(v1)
		d.AdmissionHandler.RegisterRoutes(admin)
		d.ReportHandler.RegisterRoutes(v1, admin)
	}

	return r
}
