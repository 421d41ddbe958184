package app

import (
	"context"
	"errors"
	"time"

	"github.com/johnrirwin/devicedeck/internal/auth"
	"github.com/johnrirwin/devicedeck/internal/cache"
	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/chat"
	"github.com/johnrirwin/devicedeck/internal/compare"
	"github.com/johnrirwin/devicedeck/internal/config"
	"github.com/johnrirwin/devicedeck/internal/crypto"
	"github.com/johnrirwin/devicedeck/internal/database"
	"github.com/johnrirwin/devicedeck/internal/facets"
	"github.com/johnrirwin/devicedeck/internal/history"
	"github.com/johnrirwin/devicedeck/internal/httpapi"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/mcp"
	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/ratelimit"
	"github.com/johnrirwin/devicedeck/internal/sellers"
	"github.com/johnrirwin/devicedeck/internal/wishlist"
)

// App holds all application dependencies
type App struct {
	Config      *config.Config
	Logger      *logging.Logger
	Cache       cache.Cache
	CatalogSvc  *catalog.Service
	Facets      *facets.Catalog
	CompareSvc  *compare.Service
	WishlistSvc *wishlist.Service
	HistorySvc  *history.Service
	ChatSvc     *chat.Service
	AuthService *auth.Service
	Refresher   *sellers.Refresher
	HTTPServer  *httpapi.Server
	MCPServer   *mcp.Server

	db           *database.DB
	productStore *database.ProductStore
	chatLimiter  ratelimit.RateLimiter
	fetchLimiter *ratelimit.Limiter
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	app.Cache = app.initCache()

	// Outbound requests to feeds and retailers share one per-host limiter
	app.fetchLimiter = ratelimit.New(cfg.Server.RateLimitDur)

	app.initDatabase()

	app.CatalogSvc = catalog.NewService(app.initSource(), app.Cache, cfg.Cache.TTL, app.Logger)
	app.Facets = facets.NewCatalog(app.initFacets())
	app.CompareSvc = compare.NewService(app.CatalogSvc)
	app.ChatSvc = chat.NewService(app.Cache, app.chatLimiter, chat.Config{
		HistoryTTL:     cfg.Chat.HistoryTTL,
		MaxMessageSize: cfg.Chat.MaxMessageSize,
	}, app.Logger)

	app.initShopperServices()
	app.initRefresher()
	app.initServers()

	return app, nil
}

// Run starts the application in the appropriate mode
func (a *App) Run(ctx context.Context) error {
	if a.Refresher != nil {
		go a.Refresher.Run(ctx, a.Config.Offers.RefreshInterval)
	}

	if a.Config.Server.MCPMode {
		return a.runMCPMode(ctx)
	}
	return a.runHTTPMode(ctx)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	switch c := a.Cache.(type) {
	case *cache.MemoryCache:
		c.Stop()
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	}

	a.Logger.Sync()
	return nil
}

func (a *App) initCache() cache.Cache {
	cfg := a.Config.Cache
	switch cfg.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", cfg.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "devicedeck:",
		}, cfg.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			a.chatLimiter = ratelimit.New(a.Config.Chat.RateLimit)
			return cache.NewMemory(cfg.TTL)
		}
		a.chatLimiter = ratelimit.NewRedis(redisCache.Client(), "ratelimit:chat:", a.Config.Chat.RateLimit)
		a.Logger.Info("Using Redis for distributed rate limiting")
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		a.chatLimiter = ratelimit.New(a.Config.Chat.RateLimit)
		return cache.NewMemory(cfg.TTL)
	}
}

func (a *App) initDatabase() {
	cfg := a.Config.Database
	db, err := database.New(database.Config{
		URL:      cfg.URL,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	})
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, using bundled catalog and in-memory shopper data", logging.WithField("error", err.Error()))
		return
	}

	a.Logger.Info("Connected to PostgreSQL")
	if err := db.Migrate(context.Background()); err != nil {
		a.Logger.Warn("Failed to run migrations, using bundled catalog and in-memory shopper data", logging.WithField("error", err.Error()))
		db.Close()
		return
	}

	a.db = db
	a.productStore = database.NewProductStore(db)

	if a.Config.Catalog.SeedOnStart {
		a.seedProducts(context.Background())
	}
}

// seedProducts copies the bundled catalog into empty product tables
func (a *App) seedProducts(ctx context.Context) {
	for _, category := range models.AllCategories {
		n, err := a.productStore.Count(ctx, category)
		if err != nil {
			a.Logger.Warn("Failed to count products", logging.WithFields(map[string]interface{}{
				"category": string(category),
				"error":    err.Error(),
			}))
			continue
		}
		if n > 0 {
			continue
		}

		raws, err := catalog.LoadBundled(category)
		if errors.Is(err, catalog.ErrNoItems) {
			continue
		}
		if err != nil {
			a.Logger.Warn("Failed to read bundled catalog", logging.WithField("error", err.Error()))
			continue
		}

		items := catalog.Normalize(category, raws)
		if err := a.productStore.UpsertProducts(ctx, items); err != nil {
			a.Logger.Warn("Failed to seed products", logging.WithFields(map[string]interface{}{
				"category": string(category),
				"error":    err.Error(),
			}))
			continue
		}
		a.Logger.Info("Seeded products", logging.WithFields(map[string]interface{}{
			"category": string(category),
			"count":    len(items),
		}))
	}
}

// initSource builds the configured source with the bundled catalog as the
// last fallback
func (a *App) initSource() catalog.Source {
	cfg := a.Config.Catalog
	static := catalog.NewStaticSource()

	var primary catalog.Source
	switch cfg.Source {
	case "postgres":
		if a.productStore == nil {
			a.Logger.Warn("Catalog source postgres requested without a database, using bundled catalog")
			return static
		}
		primary = catalog.NewStoreSource(a.productStore)
	case "feed":
		if len(cfg.FeedURLs) == 0 {
			a.Logger.Warn("Catalog source feed requested without CATALOG_FEED_* URLs, using bundled catalog")
			return static
		}
		primary = catalog.NewFeedSource(catalog.FeedConfig{
			Merchant: cfg.FeedMerchant,
			URLs:     cfg.FeedURLs,
			Timeout:  a.Config.Offers.FetchTimeout,
		}, a.fetchLimiter)
	default:
		return static
	}

	a.Logger.Info("Using catalog source", logging.WithField("source", primary.Name()))
	return catalog.NewChainSource(a.Logger, primary, static)
}

func (a *App) initFacets() *facets.Config {
	path := a.Config.Catalog.FacetsPath
	if path == "" {
		path = facets.Find()
	}
	if path == "" {
		a.Logger.Info("No facets.yaml found, using built-in filter options")
		return facets.Default()
	}

	cfg, err := facets.Load(path)
	if err != nil {
		a.Logger.Warn("Failed to load facets config, using defaults", logging.WithFields(map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		}))
		return facets.Default()
	}
	a.Logger.Info("Loaded facets configuration", logging.WithField("path", path))
	return cfg
}

func (a *App) initShopperServices() {
	if a.db == nil {
		a.WishlistSvc = wishlist.NewService(wishlist.NewMemoryStore(), a.CatalogSvc, a.Logger)
		a.HistorySvc = history.NewService(history.NewMemoryStore(), a.CatalogSvc, a.Logger)
		a.initAuth(auth.NewMemoryStore())
		return
	}

	var sealer *crypto.Sealer
	if key := a.Config.Crypto.ProfileKey; key != "" {
		s, err := crypto.NewSealer(key)
		if err != nil {
			a.Logger.Warn("Failed to initialize sealer - phone numbers will NOT be encrypted",
				logging.WithField("error", err.Error()),
				logging.WithField("hint", "Set PROFILE_ENCRYPTION_KEY to exactly 32 characters"))
		} else {
			sealer = s
		}
	}

	a.WishlistSvc = wishlist.NewService(database.NewWishlistStore(a.db), a.CatalogSvc, a.Logger)
	a.HistorySvc = history.NewService(database.NewHistoryStore(a.db), a.CatalogSvc, a.Logger)
	a.initAuth(database.NewUserStore(a.db, sealer))
}

func (a *App) initAuth(store auth.UserStore) {
	if a.Config.Auth.JWTSecret == "" {
		a.Logger.Warn("JWT_SECRET not set, sign-in and shopper features are disabled")
		return
	}
	a.AuthService = auth.NewService(store, a.Cache, a.Config.Auth, a.Logger)
	a.Logger.Info("Authentication service initialized")
}

func (a *App) initRefresher() {
	if a.Config.Offers.RefreshInterval <= 0 {
		return
	}
	if a.productStore == nil {
		a.Logger.Warn("Offer refresh needs PostgreSQL, refresher disabled")
		return
	}

	sellerConfig := sellers.DefaultConfig()
	sellerConfig.Timeout = a.Config.Offers.FetchTimeout

	registry := sellers.NewRegistry()
	registry.Register(sellers.NewAmazon(a.fetchLimiter, sellerConfig))
	registry.Register(sellers.NewFlipkart(a.fetchLimiter, sellerConfig))
	a.Logger.Info("Registered seller adapters", logging.WithField("count", len(registry.List())))

	a.Refresher = sellers.NewRefresher(registry, a.CatalogSvc, a.productStore, a.Logger)
}

func (a *App) initServers() {
	a.HTTPServer = httpapi.New(httpapi.Services{
		Catalog:  a.CatalogSvc,
		Facets:   a.Facets,
		Compare:  a.CompareSvc,
		Wishlist: a.WishlistSvc,
		History:  a.HistorySvc,
		Chat:     a.ChatSvc,
		Auth:     a.AuthService,
		Frontend: a.Config.Auth.FrontendURL,
	}, a.Config.Server.AllowedOrigins, a.Logger)

	mcpHandler := mcp.NewHandler(a.CatalogSvc, a.Facets, a.CompareSvc, a.Logger)
	a.MCPServer = mcp.NewServer(mcpHandler, a.Logger)
}

func (a *App) runMCPMode(ctx context.Context) error {
	a.Logger.Info("Starting MCP server in stdio mode")
	return a.MCPServer.Run(ctx)
}

func (a *App) runHTTPMode(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	go a.warmCatalog(ctx)

	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// warmCatalog loads every category in the background so the first browse
// does not pay for the source load
func (a *App) warmCatalog(ctx context.Context) {
	start := time.Now()
	for _, category := range models.AllCategories {
		if _, err := a.CatalogSvc.Items(ctx, category); err != nil {
			a.Logger.Warn("Catalog warm-up failed", logging.WithFields(map[string]interface{}{
				"category": string(category),
				"error":    err.Error(),
			}))
		}
	}
	a.Logger.Info("Catalog warm-up complete", logging.WithField("duration", time.Since(start).String()))
}
