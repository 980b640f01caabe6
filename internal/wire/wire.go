// Package wire provides dependency injection for the SLA engine.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cliadapter "github.com/example/slaengine/internal/adapters/cli"
	"github.com/example/slaengine/internal/adapters/notify"
	redisadapter "github.com/example/slaengine/internal/adapters/redis"
	"github.com/example/slaengine/internal/adapters/sqlite"
	"github.com/example/slaengine/internal/app"
	"github.com/example/slaengine/internal/config"
	"github.com/example/slaengine/internal/db"
	"github.com/example/slaengine/internal/ports/primary"
	"github.com/example/slaengine/internal/ports/secondary"
)

// App holds one fully wired engine.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sql.DB
	Registry *prometheus.Registry

	SLA         *app.SLAServiceImpl
	Policies    *app.PolicyServiceImpl
	Escalations *app.EscalationServiceImpl
	Users       *app.UserServiceImpl
	PolicyStore *app.PolicyStore

	redis *goredis.Client
}

// New builds an App from cfg. The caller owns the result and must Close it.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, DB: database, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := app.NewMetrics(a.Registry)

	// Create repository adapters (secondary ports)
	itemRepo := sqlite.NewWorkItemRepository(database)
	policyRepo := sqlite.NewPolicyRepository(database)
	userRepo := sqlite.NewUserRepository(database)

	var ledger secondary.EscalationLedger
	switch cfg.Ledger {
	case config.LedgerRedis:
		a.redis = redisadapter.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ledger = redisadapter.NewEscalationLedger(a.redis, redisadapter.DefaultPrefix)
	default:
		ledger = sqlite.NewEscalationRepository(database)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	renderer, err := newRenderer(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.PolicyStore = app.NewPolicyStore(policyRepo, app.PolicyStoreOptions{
		Size: cfg.PolicyCacheSize,
		TTL:  cfg.PolicyCacheTTL.Std(),
	}, logger.Named("policy"), metrics)

	dispatcher := app.NewEscalationDispatcher(ledger, userRepo, notifier, renderer, app.DispatcherOptions{
		NotifyTimeout: cfg.NotifyTimeout.Std(),
		ClaimLease:    cfg.ClaimLease.Std(),
		LinkBaseURL:   cfg.LinkBaseURL,
	}, logger.Named("escalation"), metrics)

	// Create services (primary ports implementation)
	a.SLA = app.NewSLAService(itemRepo, a.PolicyStore, dispatcher, app.SweepOptions{
		Workers:     cfg.SweepWorkers,
		ItemTimeout: cfg.ItemTimeout.Std(),
	}, logger.Named("sla"), metrics)
	a.Policies = app.NewPolicyService(policyRepo, a.PolicyStore, logger.Named("policy"))
	a.Escalations = app.NewEscalationService(ledger)
	a.Users = app.NewUserService(userRepo)

	return a, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (secondary.Notifier, error) {
	var transport secondary.Notifier
	switch cfg.Notifier {
	case config.NotifierWebhook:
		transport = notify.NewWebhookNotifier(cfg.WebhookURL, nil)
	default:
		transport = notify.NewLogNotifier(logger.Named("notify"))
	}
	if cfg.NotifyRatePerSec == 0 {
		return transport, nil
	}
	return notify.NewThrottledNotifier(transport, cfg.NotifyRatePerSec, cfg.NotifyBurst, cfg.NotifyTimeout.Std()), nil
}

func newRenderer(cfg *config.Config, logger *zap.Logger) (secondary.Renderer, error) {
	src := notify.DefaultTemplate
	if cfg.TemplateFile != "" {
		data, err := os.ReadFile(cfg.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file: %w", err)
		}
		src = string(data)
	}
	return notify.NewTemplateRenderer(src, notify.PlainTextRenderer{}, logger.Named("render"))
}

// Close releases the database and any ledger connection.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

var (
	current    *App
	currentCfg *config.Config
	logger     *zap.Logger
	once       sync.Once
)

// Configure sets the configuration and logger used by the singletons. It must
// be called before the first service accessor.
func Configure(cfg *config.Config, l *zap.Logger) {
	currentCfg = cfg
	logger = l
}

// Current returns the singleton App instance.
func Current() *App {
	once.Do(initServices)
	return current
}

// SLAService returns the singleton SLAService instance.
func SLAService() primary.SLAService {
	return Current().SLA
}

// PolicyService returns the singleton PolicyService instance.
func PolicyService() primary.PolicyService {
	return Current().Policies
}

// EscalationService returns the singleton EscalationService instance.
func EscalationService() primary.EscalationService {
	return Current().Escalations
}

// UserService returns the singleton UserService instance.
func UserService() primary.UserService {
	return Current().Users
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	cfg := currentCfg
	if cfg == nil {
		cfg = config.Default()
	}
	a, err := New(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize engine: %v", err)
	}
	current = a
}

// Shutdown closes the singleton App if it was created.
func Shutdown() error {
	if current == nil {
		return nil
	}
	return current.Close()
}

// ItemAdapter returns a new ItemAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func ItemAdapter() *cliadapter.ItemAdapter {
	return ItemAdapterWithOutput(os.Stdout)
}

// ItemAdapterWithOutput returns a new ItemAdapter writing to the given output.
func ItemAdapterWithOutput(out io.Writer) *cliadapter.ItemAdapter {
	return cliadapter.NewItemAdapter(SLAService(), out)
}

// EscalationAdapter returns a new EscalationAdapter writing to stdout.
func EscalationAdapter() *cliadapter.EscalationAdapter {
	return cliadapter.NewEscalationAdapter(EscalationService(), os.Stdout)
}
