package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/chatea-chevere/orderbot/internal/api"
	"github.com/chatea-chevere/orderbot/internal/convstore"
	"github.com/chatea-chevere/orderbot/internal/lockfile"
	"github.com/chatea-chevere/orderbot/internal/messaging"
	"github.com/chatea-chevere/orderbot/internal/orders"
	"github.com/chatea-chevere/orderbot/internal/router"
	"github.com/chatea-chevere/orderbot/internal/tenant"
	"github.com/chatea-chevere/orderbot/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for orderbot state data
	DefaultStateDir = "/var/lib/orderbot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "orderbot.db"
	// DefaultSandboxName is the brand line of the shared sandbox menu
	DefaultSandboxName = "La Tiendita Chévere"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping orderbot")
	if err := run(flags); err != nil {
		slog.Error("orderbot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("orderbot exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	APIAddr      string
	VerifyToken  string
	TenantsFile  string
	AdminBaseURL string
	OrderBaseURL string
	SandboxName  string
	TestTenants  string
	DevMode      bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	redisAddr    *string
	apiAddr      *string
	tenantsFile  *string
	devMode      *bool
	redisPass    string
	redisDB      int
	verifyToken  string
	adminBaseURL string
	orderBaseURL string
	sandboxName  string
	testTenants  string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     os.Getenv("ORDERBOT_STATE_DIR"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:      util.ParseIntEnv("REDIS_DB", 0),
		APIAddr:      os.Getenv("API_ADDR"),
		VerifyToken:  os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		TenantsFile:  os.Getenv("TENANTS_FILE"),
		AdminBaseURL: os.Getenv("ADMIN_BASE_URL"),
		OrderBaseURL: os.Getenv("ORDER_BASE_URL"),
		SandboxName:  os.Getenv("SANDBOX_NAME"),
		TestTenants:  os.Getenv("TEST_TENANTS"),
		DevMode:      util.ParseBoolEnv("DEV_MODE", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ORDERBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.SandboxName == "" {
		config.SandboxName = DefaultSandboxName
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ORDERBOT_STATE_DIR", config.StateDir,
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"API_ADDR", config.APIAddr,
		"WEBHOOK_VERIFY_TOKEN_SET", config.VerifyToken != "",
		"TENANTS_FILE", config.TenantsFile,
		"DEV_MODE", config.DevMode)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for orderbot data (overrides $ORDERBOT_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the orders store (overrides $DATABASE_URL)"),
		redisAddr:    flag.String("redis-addr", config.RedisAddr, "Redis address for the conversation store (overrides $REDIS_ADDR)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		tenantsFile:  flag.String("tenants-file", config.TenantsFile, "path to the tenants JSON file (overrides $TENANTS_FILE)"),
		devMode:      flag.Bool("dev", config.DevMode, "dev mode: echo replies in the webhook response instead of sending (overrides $DEV_MODE)"),
		redisPass:    config.RedisPass,
		redisDB:      config.RedisDB,
		verifyToken:  config.VerifyToken,
		adminBaseURL: config.AdminBaseURL,
		orderBaseURL: config.OrderBaseURL,
		sandboxName:  config.SandboxName,
		testTenants:  config.TestTenants,
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisAddr_set", *flags.redisAddr != "",
		"apiAddr", *flags.apiAddr,
		"tenantsFile", *flags.tenantsFile,
		"devMode", *flags.devMode)

	// Follow a moved state directory when the DSN was derived from it
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if orders.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only one instance may own the state directory
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	// Tenant sources and resolver
	sources, err := tenant.LoadSources(*flags.tenantsFile)
	if err != nil {
		return err
	}
	resolver := tenant.NewResolver(sources)

	// Conversation store: Redis when configured, in-process otherwise,
	// always fronted by the local cache tier
	var durable convstore.Store
	var redisStore *convstore.RedisStore
	if *flags.redisAddr != "" {
		redisStore, err = convstore.NewRedisStore(*flags.redisAddr, flags.redisPass, flags.redisDB)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		durable = redisStore
	} else {
		slog.Warn("No Redis address configured, conversations are process-local")
		durable = convstore.NewInMemoryStore()
	}
	store := convstore.NewCachedStore(durable, convstore.DefaultLocalTTL)

	// Orders backend
	repo, err := orders.NewRepository(orders.WithDSN(*flags.dbDSN))
	if err != nil {
		return err
	}
	if closer, ok := repo.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var testTenants []string
	if flags.testTenants != "" {
		testTenants = strings.Split(flags.testTenants, ",")
	}
	factory := orders.NewFactory(testTenants, *flags.devMode)

	// Admin dashboard links need a session store and a base URL
	var admin *router.AdminManager
	if flags.adminBaseURL != "" {
		var sessions router.SessionStore
		if redisStore != nil {
			sessions = router.NewRedisSessionStore(redisStore.Client())
		} else {
			sessions = router.NewInMemorySessionStore()
		}
		admin = router.NewAdminManager(resolver, sessions, flags.adminBaseURL)
	} else {
		slog.Warn("No ADMIN_BASE_URL configured, admin command disabled")
	}

	deps := tenant.RuntimeDeps{
		Store:        store,
		Factory:      factory,
		Repo:         repo,
		OrderBaseURL: flags.orderBaseURL,
	}
	rt := router.New(resolver, deps, admin, flags.sandboxName)

	// Outbound delivery
	var sender messaging.Sender
	if *flags.devMode {
		slog.Warn("Dev mode enabled, outbound messages are not delivered")
		sender = messaging.NewMockSender()
	} else {
		sender, err = messaging.NewTwilioSender()
		if err != nil {
			return err
		}
	}

	apiOpts := []api.Option{
		api.WithVerifyToken(flags.verifyToken),
		api.WithDevMode(*flags.devMode),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(resolver, rt, sender, repo, admin, apiOpts...)

	return server.Start(ctx)
}
