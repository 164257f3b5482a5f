package main

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grievance-api/api/swagger"
	"github.com/noah-isme/grievance-api/internal/app"
	"github.com/noah-isme/grievance-api/internal/handler"
	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/requestid"
)

func newRouter(ctx context.Context, cfg *config.Config, c *app.Container, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(c.Metrics))

	metricsHandler := handler.NewMetricsHandler(c.Metrics, map[string]handler.Pinger{
		"postgres": c.DB,
		"redis":    app.RedisPinger{Client: c.Redis},
	})
	grievanceHandler := handler.NewGrievanceHandler(c.Grievance)
	notificationHandler := handler.NewNotificationHandler(c.Notification)
	dashboardHandler := handler.NewDashboardHandler(c.Dashboard)
	adminHandler := handler.NewAdminHandler(c.Officer, c.Escalation, c.Export, c.Repos.Categories)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/public/dashboard", dashboardHandler.Public)

	authed := api.Group("")
	authed.Use(middleware.JWT(c.Auth))

	submitLimiter := middleware.NewRateLimiter(cfg.RateLimit.SubmitPerSecond, cfg.RateLimit.SubmitBurst)
	submitLimiter.StartCleanup(ctx)
	authed.POST("/grievances", submitLimiter.Middleware(), grievanceHandler.Submit)
	authed.GET("/grievances", grievanceHandler.List)
	authed.GET("/grievances/:id", grievanceHandler.Get)
	authed.GET("/grievances/:id/status", grievanceHandler.Status)
	authed.GET("/grievances/:id/history", grievanceHandler.History)
	authed.POST("/grievances/:id/feedback", grievanceHandler.Feedback)
	authed.GET("/categories", adminHandler.Categories)

	authed.GET("/notifications", notificationHandler.List)
	authed.GET("/notifications/summary", notificationHandler.Summary)
	authed.POST("/notifications/:id/read", notificationHandler.MarkRead)

	officer := authed.Group("/officer")
	officer.Use(middleware.RequireRoles(models.RoleOfficer, models.RoleAdmin))
	officer.GET("/dashboard", dashboardHandler.Officer)
	officer.PATCH("/grievances/:id", grievanceHandler.OfficerUpdate)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/officers", adminHandler.ListOfficers)
	admin.PATCH("/officers/:id/active", adminHandler.SetOfficerActive)
	admin.POST("/escalations/sweep", adminHandler.Sweep)
	admin.GET("/grievances/export", adminHandler.Export)

	return r
}
