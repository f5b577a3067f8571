package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/otabek-olimov/uzshop-backend/internal/auth"
	"github.com/otabek-olimov/uzshop-backend/internal/config"
	"github.com/otabek-olimov/uzshop-backend/internal/flash"
	"github.com/otabek-olimov/uzshop-backend/internal/middleware"
	"github.com/otabek-olimov/uzshop-backend/internal/shop"
	"github.com/otabek-olimov/uzshop-backend/internal/store"
	"github.com/otabek-olimov/uzshop-backend/internal/user"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── Logging ──────────────────────────────────────────────
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(os.Stderr)

	// ── PostgreSQL ───────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres migrate")
	}
	if err := pgStore.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres seed")
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer mongoClient.Disconnect(ctx)
	commentStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MinIO ────────────────────────────────────────────────
	avatarStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio connect")
	}

	// ── Handlers ─────────────────────────────────────────────
	flashStore := flash.NewStore(cfg.SessionSecret)
	userHandler := user.NewHandler(pgStore, sessions, avatarStore, flashStore, log.Logger)
	shopHandler := shop.NewHandler(pgStore, commentStore, pgStore, flashStore, log.Logger)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Catalog
	r.Get("/", shopHandler.Home)
	r.Route("/product/{slug}", func(r chi.Router) {
		r.Get("/detail/", shopHandler.Detail)
		r.With(middleware.RequireAuth(sessions)).Post("/comment/", shopHandler.Comment)
	})

	// Accounts
	r.Route("/user", func(r chi.Router) {
		r.Get("/register/", userHandler.RegisterPage)
		r.Post("/register/", userHandler.Register)
		r.Get("/login/", userHandler.LoginPage)
		r.Post("/login/", userHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessions))
			r.Get("/logout/", userHandler.Logout)
			r.Get("/profile/", userHandler.Profile)
			r.Post("/profile/", userHandler.UpdateProfile)
			r.Post("/profile/update-photo/", userHandler.UpdatePhoto)
			r.Get("/password-change/", userHandler.PasswordChangePage)
			r.Post("/password-change/", userHandler.PasswordChange)
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
