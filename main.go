package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/cart"
	"github.com/princinho/storefront/config"
	"github.com/princinho/storefront/controllers"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/database/memory"
	"github.com/princinho/storefront/middleware"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	stores, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	uploader, closeUploader, err := openUploader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeUploader()

	var rdb *redis.Client
	carts := cart.Store(cart.NewMemoryStore())
	var hits middleware.HitCounter
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		log.Println("[boot] redis connected, carts and rate limits are shared")
		carts = cart.NewRedisStore(rdb, cart.DefaultTTL)
		hits = middleware.NewRedisHitCounter(rdb)
	} else {
		log.Println("[boot] REDIS_URL not set, carts stay in process memory and rate limiting is off")
	}

	tokens := &utils.TokenManager{
		AccessSecret:  []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	app := controllers.NewApp(stores, controllers.Options{
		Tokens:    tokens,
		Uploader:  uploader,
		Carts:     carts,
		MaxImages: cfg.MaxProductImages,
		Cookies:   utils.CookieConfig{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain},
		Files:     utils.NewFileValidator(cfg.AllowedFileExtensions, cfg.AllowedFileMimeTypes, cfg.MaxUploadSizeMB),
		Limits:    cfg.QueryLimits,
	})

	if cfg.AdminEmail != "" {
		if err := app.Users.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	authCfg := middleware.AuthConfig{Tokens: tokens}
	if cfg.OIDCIssuer != "" {
		verifier, err := utils.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return err
		}
		authCfg.OIDC = verifier
		authCfg.Users = app.Users
		log.Println("[boot] accepting ID tokens from", cfg.OIDCIssuer)
	}

	origins := middleware.NewOrigins(cfg.AllowedOrigins)
	log.Printf("[boot] allowed origins: %v", cfg.AllowedOrigins)
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		err := config.Watch(file, func(next *config.Config) {
			origins.Set(next.AllowedOrigins)
			log.Printf("[config] allowed origins reloaded: %v", next.AllowedOrigins)
		})
		if err != nil {
			return err
		}
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(origins))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	app.Routes(r, controllers.Guards{
		Auth:    middleware.AuthMiddleware(authCfg),
		Admin:   middleware.RequireRole(app.Users, models.RoleAdmin),
		Limiter: middleware.RateLimiter(hits, cfg.RateLimitPerMinute, time.Minute),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[boot] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("[shutdown] waiting for pending requests to finish")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server failed to shut down gracefully: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStores(ctx context.Context, cfg *config.Config) (*database.Stores, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Println("[boot] using the in-memory store, data is lost on exit")
		return memory.NewStores(), func() {}, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Println("[shutdown] mongo disconnect:", err)
		}
	}

	db := client.Database(cfg.DatabaseName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		closeFn()
		return nil, nil, err
	}
	return database.NewMongoStores(db), closeFn, nil
}

func openUploader(ctx context.Context, cfg *config.Config) (utils.Uploader, func(), error) {
	switch cfg.ImageStore {
	case config.ImagesGCS:
		gcs, err := utils.NewGCSUploader(ctx, cfg.GCSBucket, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	case config.ImagesR2:
		r2, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			return nil, nil, err
		}
		return r2, func() {}, nil
	default:
		log.Println("[boot] IMAGE_STORE=none, image uploads are disabled")
		return utils.NoopUploader{}, func() {}, nil
	}
}
