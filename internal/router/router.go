package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/medibook/medibook-api/internal/handler"
	"github.com/medibook/medibook-api/internal/middleware"
	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/service"
	"github.com/medibook/medibook-api/pkg/config"
	"github.com/medibook/medibook-api/pkg/logger"
	corsmiddleware "github.com/medibook/medibook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/medibook/medibook-api/pkg/middleware/requestid"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Appointments *handler.AppointmentHandler
	Availability *handler.AvailabilityHandler
	Doctors      *handler.DoctorHandler
	Admin        *handler.AdminHandler
	Reports      *handler.ReportHandler
	Metrics      *handler.MetricsHandler
}

// New builds the gin engine with all middleware and routes mounted.
func New(cfg *config.Config, logr *zap.Logger, authSvc *service.AuthService, metricsSvc *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(authSvc, cfg.JWT.CookieName)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", authRequired, h.Auth.Logout)
		auth.POST("/change-password", authRequired, h.Auth.ChangePassword)
		auth.GET("/me", authRequired, h.Auth.Me)
	}

	doctors := api.Group("/doctors")
	{
		doctors.GET("", h.Doctors.List)
		doctors.GET("/:id/availability", h.Doctors.Availability)
	}

	api.POST("/appointments", authRequired, h.Appointments.Book)
	api.GET("/user/appointments", authRequired, h.Appointments.ListForUser)

	doctor := api.Group("/doctor", authRequired, middleware.RequireRoles(models.RoleDoctor))
	{
		doctor.GET("/appointments", h.Appointments.ListForDoctor)
		doctor.POST("/availability", h.Availability.OfferSlot)
		doctor.GET("/availability", h.Availability.ListOwn)
	}

	admin := api.Group("/admin")
	{
		// Download authenticates with the signed token, not the session.
		admin.GET("/reports/download", h.Reports.Download)

		protected := admin.Group("", authRequired, middleware.RequireRoles(models.RoleAdmin))
		{
			protected.GET("/stats", h.Admin.Stats)
			protected.GET("/users", h.Admin.ListUsers)
			protected.DELETE("/users/:id", h.Admin.DeleteUser)
			protected.GET("/doctors", h.Admin.ListDoctors)
			protected.PATCH("/doctors/:id/approve", h.Admin.ApproveDoctor)
			protected.DELETE("/doctors/:id", h.Admin.DeleteUser)
			protected.GET("/appointments", h.Admin.ListAppointments)
			protected.POST("/reports", h.Reports.Create)
			protected.GET("/reports/:id", h.Reports.Status)
		}
	}

	return r
}
