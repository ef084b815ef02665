package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openquiz/quizgate/config"
	"github.com/openquiz/quizgate/database"
	_ "github.com/openquiz/quizgate/docs" // Swagger docs - auto-generated
	adminctrl "github.com/openquiz/quizgate/internal/controller/admin"
	userctrl "github.com/openquiz/quizgate/internal/controller/user"
	"github.com/openquiz/quizgate/internal/logger"
	"github.com/openquiz/quizgate/internal/model"
	"github.com/openquiz/quizgate/internal/questionusage"
	"github.com/openquiz/quizgate/internal/repository"
	"github.com/openquiz/quizgate/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Quiz Gate API
// @version 1.0
// @description Timed, rule-gated quiz attempt lifecycle and access control API.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		fx.Provide(
			repository.NewQuizRepository,
			repository.NewAttemptRepository,
			repository.NewOverrideRepository,
			repository.NewPrincipalRepository,
			repository.NewPreflightRepository,
			repository.NewQuizGradeRepository,
		),

		fx.Provide(
			func(db *gorm.DB) questionusage.Engine {
				return questionusage.NewGormEngine(db, nil)
			},
			func() service.Clock { return time.Now },
			service.NewAccessService,
			service.NewGradeService,
			service.NewAttemptService,
			service.NewQuizService,
			func(cfg *config.Config, attempts service.AttemptService) *service.Sweeper {
				interval := time.Duration(cfg.Sweeper.IntervalSec) * time.Second
				return service.NewSweeper(attempts, interval, cfg.Sweeper.BatchSize)
			},
		),

		fx.Provide(
			userctrl.NewAttemptController,
			adminctrl.NewAdminQuizController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(StartSweeper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	attemptCtrl *userctrl.AttemptController,
	adminQuizCtrl *adminctrl.AdminQuizController,
) {
	apiV1 := router.Group("/api/v1")
	attemptCtrl.RegisterRoutes(apiV1)

	adminV1 := router.Group("/api/v1/admin")
	adminQuizCtrl.RegisterRoutes(adminV1)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Quiz Gate API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func StartSweeper(lc fx.Lifecycle, sweeper *service.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	models := []interface{}{
		&model.Quiz{},
		&model.Slot{},
		&model.Attempt{},
		&model.Override{},
		&model.GroupMember{},
		&model.Capability{},
		&model.QuizGrade{},
		&model.PreflightPass{},
	}
	models = append(models, questionusage.Models()...)
	if err := db.AutoMigrate(models...); err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
