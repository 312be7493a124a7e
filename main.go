package main

import (
	"context"
	"math/rand/v2"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sketch_club/internal/api"
	"sketch_club/internal/logger"
	"sketch_club/internal/realtime"
	"sketch_club/internal/repository"
	"sketch_club/internal/service"
	"sketch_club/internal/storage"
	"sketch_club/internal/utils"
	"sketch_club/internal/words"
	"sketch_club/pkg/config"
)

func main() {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)

	// 初始化儲存層：postgres 或單機記憶體
	var repos *repository.Repositories
	switch cfg.DB.Driver {
	case "memory":
		log.Warn().Msg("using in-memory store, state is lost on restart")
		repos = repository.NewMemoryRepositories()
	default:
		db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port, cfg.DB.SSLMode, cfg.DB.TimeZone)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize database")
		}
		// 確保在程序結束時關閉數據庫連接
		defer db.Close()

		// 自動遷移資料庫結構
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			log.Fatal().Err(err).Msg("failed to auto migrate database")
		}
		repos = repository.NewRepositories(db)
	}

	hub := realtime.NewHub()
	catalog := words.NewCatalog(rand.IntN)
	tokens := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// 初始化 services
	services := service.NewServices(repos, hub, catalog, tokens, service.Options{Game: cfg.Game})
	// 接手重啟前仍在進行的回合
	if err := services.Round.Resume(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to resume games")
	}

	// 設置 Gin 路由
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.Default()
	api.SetupRoutes(r, services, hub, catalog, tokens, cfg)

	// 啟動伺服器
	log.Info().Str("address", cfg.Server.Address).Str("db", cfg.DB.Driver).Msg("server starting")
	if err := r.Run(cfg.Server.Address); err != nil {
		log.Fatal().Err(err).Msg("failed to run server")
	}
}
