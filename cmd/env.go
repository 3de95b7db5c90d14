package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/board"
	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/interest"
	"github.com/sells-group/prospect-cli/internal/mailer"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/notify"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/sitecheck"
	"github.com/sells-group/prospect-cli/internal/store"
	anthropicpkg "github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/google"
	sfpkg "github.com/sells-group/prospect-cli/pkg/salesforce"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

// appEnv holds the store, queue, and services the commands run against.
type appEnv struct {
	Store        store.Store
	Queue        events.Queue
	Redis        *redis.Client // nil without redis.addr
	Dispatcher   *events.Dispatcher
	Classifier   *sitecheck.Service
	Interest     *interest.Service
	Selector     *outreach.Selector
	Importer     *prospect.Importer
	Orchestrator *pipeline.Orchestrator
	Handoff      *pipeline.Handoff
	Mover        *board.Mover
}

// Close releases the queue, redis, and store.
func (e *appEnv) Close() {
	if e.Queue != nil {
		_ = e.Queue.Close()
	}
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// drain runs events still queued in memory through the dispatcher so a
// one-shot command finishes the follow-up work it triggered. AMQP queues are
// left to the worker.
func (e *appEnv) drain(ctx context.Context) {
	mq, ok := e.Queue.(*events.MemoryQueue)
	if !ok {
		return
	}
	n, err := mq.Drain(ctx, e.Dispatcher.Dispatch)
	if err != nil {
		zap.L().Warn("drain follow-up events", zap.Error(err))
	}
	if n > 0 {
		zap.L().Info("follow-up events processed", zap.Int("events", n))
	}
}

// initEnv validates config for mode, opens the store and queue, and builds
// every service. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{}
	ok := false
	defer func() {
		if !ok {
			env.Close()
		}
	}()

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st
	if err := st.Migrate(ctx); err != nil {
		return nil, eris.Wrap(err, "migrate store")
	}

	q, err := initQueue(ctx)
	if err != nil {
		return nil, err
	}
	env.Queue = q
	dedupe, rdb, err := initDeduper(ctx)
	if err != nil {
		return nil, err
	}
	env.Redis = rdb

	sender, err := initSender()
	if err != nil {
		return nil, err
	}
	sf, err := initSalesforce()
	if err != nil {
		return nil, err
	}

	fetcher := sitecheck.NewHTTPFetcher(time.Duration(cfg.Sitecheck.TimeoutSecs)*time.Second, cfg.Sitecheck.UserAgent)
	env.Classifier = sitecheck.NewService(sitecheck.NewClassifier(fetcher), st, env.Queue, cfg.Sitecheck.RatePerSec)
	env.Interest = interest.NewService(st, env.Queue)

	var places google.Client
	if cfg.Google.Key != "" {
		places = google.NewClient(cfg.Google.Key)
	} else {
		zap.L().Debug("PROSPECT_GOOGLE_KEY not set, search sourcing disabled")
	}
	var importOpts []prospect.ImporterOption
	if cfg.SerpApi.Key != "" {
		var serpOpts []serpapi.Option
		if cfg.SerpApi.BaseURL != "" {
			serpOpts = append(serpOpts, serpapi.WithBaseURL(cfg.SerpApi.BaseURL))
		}
		importOpts = append(importOpts, prospect.WithSocialSearch(serpapi.NewClient(cfg.SerpApi.Key, serpOpts...)))
	} else {
		zap.L().Debug("PROSPECT_SERPAPI_KEY not set, intent search disabled")
	}
	env.Importer = prospect.NewImporter(st, env.Queue, places, cfg.Google.RatePerSec, importOpts...)

	opts := []outreach.Option{}
	if sender != nil {
		opts = append(opts, outreach.WithSender(sender, outreach.Identity{
			From:    cfg.Email.From(),
			BCC:     cfg.Email.BCC,
			ReplyTo: cfg.Email.ReplyTo,
		}))
	}
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		opts = append(opts, outreach.WithPersonalizer(outreach.NewAnthropicPersonalizer(
			client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, newBreaker("anthropic"),
		)))
	}
	env.Selector = outreach.NewSelector(st, opts...)

	env.Orchestrator = pipeline.NewOrchestrator(st, env.Classifier, env.Selector)
	env.Handoff = pipeline.NewHandoff(st, sf)
	env.Mover = board.NewMover(st)

	handlers := &pipeline.Handlers{
		Store:      st,
		Classifier: env.Classifier,
		Decider:    env.Selector,
		Handoff:    env.Handoff,
	}
	if hook := notify.NewWebhook(cfg.Webhook); hook.Enabled() {
		handlers.Notifier = hook
	}
	env.Dispatcher = events.NewDispatcher(dedupe)
	handlers.Register(env.Dispatcher)

	ok = true
	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "prospect.db"
		}
		st, err := store.NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{MaxConns: cfg.Store.MaxConns})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initQueue(ctx context.Context) (events.Queue, error) {
	switch cfg.Queue.Driver {
	case "amqp":
		q, err := events.DialAMQP(ctx, cfg.Queue.AMQPURL, events.AMQPConfig{
			Exchange:           cfg.Queue.Exchange,
			Queue:              cfg.Queue.Queue,
			DeadLetterExchange: cfg.Queue.DeadLetterExchange,
			Workers:            cfg.Queue.Workers,
		})
		if err != nil {
			return nil, err
		}
		return q, nil
	case "memory", "":
		return events.NewMemoryQueue(cfg.Queue.Buffer), nil
	default:
		return nil, eris.Errorf("unsupported queue driver: %s", cfg.Queue.Driver)
	}
}

// initDeduper uses Redis when configured so replicas share the window.
func initDeduper(ctx context.Context) (events.Deduper, *redis.Client, error) {
	ttl := time.Duration(cfg.Redis.DedupeTTLSecs) * time.Second
	if cfg.Redis.Addr == "" {
		return events.NewMemoryDeduper(ttl), nil, nil
	}
	rdb, err := events.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return events.NewRedisDeduper(rdb, ttl), rdb, nil
}

func initSender() (mailer.Sender, error) {
	sender, err := mailer.NewFromConfig(cfg.Email)
	if err != nil || sender == nil {
		return nil, err
	}
	return mailer.NewGuarded(sender, newBreaker("email")), nil
}

func initSalesforce() (sfpkg.Client, error) {
	if !cfg.Salesforce.Enabled() {
		zap.L().Debug("salesforce not configured, handoff disabled")
		return nil, nil
	}
	return sfpkg.Connect(sfpkg.Credentials{
		LoginURL: cfg.Salesforce.LoginURL,
		Username: cfg.Salesforce.Username,
		ClientID: cfg.Salesforce.ClientID,
		KeyPath:  cfg.Salesforce.KeyPath,
	}, sfpkg.WithRateLimit(5))
}

// newBreaker builds a circuit breaker for an outbound provider that reports
// its state to metrics.
func newBreaker(name string) *resilience.CircuitBreaker {
	bc := resilience.NewCircuitConfig(name, cfg.Outreach.BreakerFails, cfg.Outreach.BreakerResetS)
	bc.OnStateChange = func(name string, from, to resilience.CircuitState) {
		metrics.SetCircuitState(name, int(to))
		zap.L().Warn("circuit breaker state change",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return resilience.NewCircuitBreaker(bc)
}
