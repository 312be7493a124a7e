package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sketch_club/internal/api/handlers"
	"sketch_club/internal/middleware"
	"sketch_club/internal/realtime"
	"sketch_club/internal/service"
	"sketch_club/internal/utils"
	"sketch_club/internal/words"
	"sketch_club/pkg/config"
)

func SetupRoutes(r *gin.Engine, services *service.Services, hub *realtime.Hub, catalog *words.Catalog, tokens *utils.TokenManager, cfg *config.Config) {
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	roomHandler := handlers.NewRoomHandler(services.Room, catalog)
	roundHandler := handlers.NewRoundHandler(services.Round)
	wsHandler := handlers.NewWebSocketHandler(hub, services, RealtimeOptions(cfg.Realtime), cfg.Server.AllowedOrigins)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	// 公開路由
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/session/anonymous", authHandler.Anonymous)
		api.GET("/categories", roomHandler.Categories)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware(tokens))
	{
		rooms := authorized.Group("/rooms")
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:code", roomHandler.GetRoom)
			rooms.POST("/:code/join", roomHandler.JoinRoom)
			rooms.POST("/:code/start", roomHandler.StartGame)
			rooms.POST("/:code/play-again", roomHandler.PlayAgain)
			rooms.POST("/:code/leave", roomHandler.LeaveRoom)
			rooms.GET("/:code/ws", wsHandler.HandleWebSocket)
		}

		rounds := authorized.Group("/rounds")
		{
			rounds.POST("/:id/guess", roundHandler.SubmitGuess)
			rounds.POST("/:id/timeout", roundHandler.Timeout)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// RealtimeOptions 把設定轉成連線參數
func RealtimeOptions(rc config.RealtimeConfig) realtime.Options {
	return realtime.Options{
		SendBuffer:        rc.SendBuffer,
		ReadLimit:         rc.ReadLimit,
		PongWait:          rc.PongWait,
		PingPeriod:        rc.PingPeriod,
		WriteWait:         rc.WriteWait,
		MessagesPerSecond: rc.MessagesPerSecond,
		Burst:             rc.Burst,
		StrokesPerSecond:  rc.StrokesPerSecond,
		StrokeBurst:       rc.StrokeBurst,
	}
}
