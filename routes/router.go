package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/careping/checkin"
	"github.com/cppla/careping/config"
	"github.com/cppla/careping/controllers"
	"github.com/cppla/careping/middleware"
	"github.com/cppla/careping/relation"
	"github.com/cppla/careping/repository"
	"github.com/cppla/careping/utils"
)

// Deps are the services the HTTP layer sits on.
type Deps struct {
	CheckIns  *checkin.Service
	Relations *relation.Service
	Users     *repository.UserRepository
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnf("gin logger unavailable, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	checkins := controllers.NewCheckInController(deps.CheckIns)
	tasks := controllers.NewTaskController(deps.CheckIns)
	relations := controllers.NewRelationController(deps.Relations)
	users := controllers.NewUserController(deps.Users)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(), middleware.RateLimit(cfg.RateLimitPerMinute))

	api.GET("/users/me", users.Me)
	api.PUT("/users/me/push", users.UpdatePush)

	api.POST("/checkins", checkins.CheckIn)
	api.GET("/checkins/daily", checkins.Daily)
	api.GET("/checkins/stats", checkins.Stats)
	api.GET("/supervised", checkins.Supervised)

	api.GET("/tasks", tasks.List)
	api.POST("/tasks", tasks.Create)
	api.PUT("/tasks/:id", tasks.Update)
	api.DELETE("/tasks/:id", tasks.Disable)

	api.GET("/relations", relations.List)
	api.POST("/relations", relations.Invite)
	api.POST("/relations/:id/accept", relations.Accept)
	api.POST("/relations/:id/reject", relations.Reject)
	api.POST("/relations/:id/unbind", relations.InitiateUnbind)
	api.DELETE("/relations/:id/unbind", relations.WithdrawUnbind)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
