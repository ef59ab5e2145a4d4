package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"dinomed-server/bank"
	"dinomed-server/config"
	"dinomed-server/exam"
	"dinomed-server/handlers"
	"dinomed-server/middleware"
	"dinomed-server/store"
)

func buildBank(ctx context.Context, cfg *config.Config) (bank.Reader, func(), error) {
	switch cfg.Bank.Backend {
	case "postgres":
		pg, err := bank.NewPostgresBank(ctx, cfg.Bank.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		log.Printf("Using file question bank at %s", cfg.Bank.Path)
		return bank.NewFileBank(cfg.Bank.Path), func() {}, nil
	}
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Sessions.Backend {
	case "sqlite":
		log.Printf("Using sqlite session store at %s", cfg.Sessions.Path)
		return store.NewSQLiteStore(cfg.Sessions.Path, cfg.Sessions.TTL)
	default:
		return store.NewMemoryStore(cfg.Sessions.TTL, cfg.Sessions.MaxCount), nil
	}
}

func main() {
	// Load .env for local development; real deployments set env vars directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	ctx := context.Background()
	questionBank, closeBank, err := buildBank(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to open question bank: %v", err)
	}
	defer closeBank()

	sessionStore, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Unable to open session store: %v", err)
	}
	defer sessionStore.Close()

	engine := exam.NewEngine(questionBank, sessionStore)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.Health())

	identity := middleware.Identity(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	// The same session operations are mounted under three prefixes because two
	// generations of frontends hardcoded different paths.
	for _, prefix := range []string{"/api/sim", "/api/simulation", "/api/simulations"} {
		grp := router.Group(prefix)
		grp.Use(identity)
		grp.POST("/start", handlers.StartSession(engine))
		grp.POST("/submit", handlers.SubmitSessionBody(engine))
		grp.GET("/:session_id", handlers.GetSession(engine))
		grp.POST("/:session_id/submit", handlers.SubmitSession(engine))
	}

	bot := router.Group("/api/bot")
	bot.Use(middleware.BotAuth(cfg.Auth.BotToken))
	{
		bot.POST("/questions/pick", handlers.PickQuestions(engine))
		bot.GET("/user/profile", handlers.UserProfile(sessionStore))
		bot.GET("/users/:email/profile", handlers.UserProfile(sessionStore))
	}

	// Background sweep of expired sessions
	if cfg.Sessions.SweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Sessions.SweepInterval)
			defer ticker.Stop()
			for range ticker.C {
				removed, err := sessionStore.Sweep(context.Background())
				if err != nil {
					log.Printf("Error sweeping expired sessions: %v", err)
					continue
				}
				if removed > 0 {
					log.Printf("Swept %d expired sessions", removed)
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	// Goroutine to gracefully shut down the server
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("DinoMed exam engine starting on %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server startup error: %v", err)
	}
	log.Println("Server exited gracefully.")
}
