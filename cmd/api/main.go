package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/wikirace-api/internal/config"
	"github.com/yourusername/wikirace-api/internal/handler"
	"github.com/yourusername/wikirace-api/internal/middleware"
	pgRepo "github.com/yourusername/wikirace-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/wikirace-api/internal/repository/redis"
	"github.com/yourusername/wikirace-api/internal/service"
	"github.com/yourusername/wikirace-api/internal/service/roomwatch"
	"github.com/yourusername/wikirace-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := os.Getenv("GIN_MODE") == "release"

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	playerRepo := pgRepo.NewPlayerRepo(db)
	challengeRepo := pgRepo.NewChallengeRepo(db)
	sessionRepo := pgRepo.NewGameSessionRepo(db)
	gameRepo := pgRepo.NewMultiplayerGameRepo(db)
	participantRepo := pgRepo.NewMultiplayerParticipantRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Конфигурация серверного таймера комнат
	watchConfig := roomwatch.DefaultConfig()
	if cfg.Game.CountdownSeconds > 0 {
		watchConfig.CountdownSeconds = cfg.Game.CountdownSeconds
	}

	// Инициализируем сервисы
	playerService := service.NewPlayerService(playerRepo)
	challengeService := service.NewChallengeService(challengeRepo)
	navigationService := service.NewNavigationService(sessionRepo)
	wikipediaService := service.NewWikipediaService(cfg.Wikipedia.Endpoint, cacheRepo)
	htmlCleaner := service.NewHtmlCleaner()
	multiplayerService := service.NewMultiplayerService(gameRepo, participantRepo, sessionRepo, watchConfig)
	syncService := service.NewSyncService(watchConfig)
	gameService := service.NewGameService(sessionRepo, participantRepo, navigationService, wikipediaService, htmlCleaner, multiplayerService)

	// Инициализируем обработчики
	playerHandler := handler.NewPlayerHandler(playerService)
	challengeHandler := handler.NewChallengeHandler(challengeService)
	gameHandler := handler.NewGameHandler(gameService, challengeService, navigationService)
	wikiHandler := handler.NewWikiHandler(wikipediaService)
	multiplayerHandler := handler.NewMultiplayerHandler(multiplayerService, challengeService, syncService)

	// Middleware идентичности игрока и rate limiting
	playerMiddleware := middleware.NewPlayerMiddleware(playerService, cfg.Server.SecureCookie)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	// В production (GIN_MODE=release): не доверяем прокси (защита от IP spoofing)
	// В development: доверяем localhost
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-State-Hash"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(rateLimiter.LimitByIP(middleware.GlobalRateLimitConfig()))
	api.Use(playerMiddleware.ResolvePlayer())
	{
		// Текущий игрок
		playerGroup := api.Group("/player")
		{
			playerGroup.GET("", playerHandler.GetCurrentPlayer)
			playerGroup.POST("/username", playerHandler.SetUsername)
		}

		// Поиск по Wikipedia (для кастомных челленджей)
		api.GET("/wiki/search", rateLimiter.Limit(middleware.SearchRateLimitConfig()), wikiHandler.SearchPages)

		// Каталог челленджей
		challenges := api.Group("/challenges")
		{
			challenges.GET("", challengeHandler.ListChallenges)
			challenges.GET("/daily", challengeHandler.GetDailyChallenge)
			challenges.POST("", challengeHandler.CreateChallenge)
			challenges.POST("/bulk-upload", challengeHandler.BulkUpload)

			challengeWithID := challenges.Group("/:id")
			challengeWithID.Use(middleware.ExtractUintParam("id", "challengeID"))
			{
				challengeWithID.GET("", challengeHandler.GetChallenge)
				// Старт соло-забега по челленджу
				challengeWithID.POST("/play", gameHandler.StartSoloGame)
			}
		}

		// Игровые сессии
		games := api.Group("/games")
		{
			gameWithID := games.Group("/:id")
			gameWithID.Use(middleware.ExtractUintParam("id", "sessionID"))
			{
				gameWithID.GET("", gameHandler.GetSession)
				// Названия статей могут содержать "/", поэтому wildcard
				gameWithID.GET("/page/*title", gameHandler.LoadPage)
				gameWithID.GET("/extract/*title", gameHandler.GetPageExtract)
				gameWithID.GET("/stats", gameHandler.GetStatistics)
			}
		}

		// Мультиплеер
		multiplayer := api.Group("/multiplayer")
		{
			multiplayer.POST("", multiplayerHandler.CreateGame)
			multiplayer.GET("/public", multiplayerHandler.ListPublicGames)
			multiplayer.GET("/code/:code", multiplayerHandler.GetGameByCode)

			roomWithID := multiplayer.Group("/:id")
			roomWithID.Use(middleware.ExtractUintParam("id", "gameID"))
			{
				roomWithID.GET("", multiplayerHandler.GetGame)
				roomWithID.POST("/join", multiplayerHandler.JoinGame)
				roomWithID.POST("/leave", multiplayerHandler.LeaveGame)
				roomWithID.POST("/ready", multiplayerHandler.SetReady)
				roomWithID.POST("/challenge", multiplayerHandler.SelectChallenge)
				roomWithID.POST("/custom-challenge", multiplayerHandler.SelectCustomChallenge)
				roomWithID.POST("/start", multiplayerHandler.StartCountdown)
				roomWithID.POST("/do-start", multiplayerHandler.DoStart)
				roomWithID.POST("/finish", multiplayerHandler.Finish)
				roomWithID.POST("/abandon", multiplayerHandler.AbandonGame)
				roomWithID.GET("/sync", rateLimiter.Limit(middleware.SyncRateLimitConfig()), multiplayerHandler.Sync)
				roomWithID.GET("/results", multiplayerHandler.Results)

				kickWithID := roomWithID.Group("/kick/:participantId")
				kickWithID.Use(middleware.ExtractUintParam("participantId", "participantID"))
				{
					kickWithID.POST("", multiplayerHandler.KickParticipant)
				}
			}
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	readTimeout := cfg.Server.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 15
	}
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30
	}
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем слушателя таймера комнат
	multiplayerService.Shutdown()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
