// Package app wires configuration into the API server, the ML worker and
// the Lambda handler.
package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"

	"commonthread/internal/auth"
	"commonthread/internal/config"
	"commonthread/internal/http"
	"commonthread/internal/pipeline"
	"commonthread/internal/queue"
	"commonthread/internal/rbac"
	"commonthread/pkg/password"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

const (
	serverAddrPrefix         = ":"
	errFailedCreateHasherFmt = "failed to create password hasher: %w"
	errInvalidAPIConfigFmt   = "invalid api configuration: %w"
	errServerFmt             = "server error: %w"
	msgStartingServer        = "starting http server"
	msgEmbeddedWorker        = "memory broker configured, running ml worker in-process"
	msgBrokerCloseFailed     = "broker close failed"
	msgCacheCloseFailed      = "presign cache close failed"
	msgEmbeddedWorkerFailed  = "embedded ml worker stopped"
)

// API is the HTTP process. With the memory broker it also runs the ML
// worker, since nothing outside the process could consume the queue.
type API struct {
	cfg      *config.Config
	log      zerolog.Logger
	parts    *components
	server   *http.Server
	worker   *Worker
	stopWork context.CancelFunc
}

func NewAPI(cfg *config.Config, log zerolog.Logger) (*API, error) {
	if err := cfg.ValidateAPI(); err != nil {
		return nil, fmt.Errorf(errInvalidAPIConfigFmt, err)
	}

	parts, err := initComponents(cfg, log)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		parts.close()
		return nil, fmt.Errorf(errFailedCreateHasherFmt, err)
	}

	store := parts.store
	checker := rbac.MustNew(rbac.DefaultConfig())
	resolver := rbac.NewResolver(checker, store.Stories, store.Projects, store.Orgs, store.Memberships)
	tokens := auth.NewTokenService(&cfg.JWT)
	producer := pipeline.NewProducer(store.Tx, store.Tasks, parts.broker, log.With().Str("component", "producer").Logger())

	server := http.NewServer(&http.ServerDependencies{
		Config:    cfg,
		Store:     store,
		Tokens:    tokens,
		Guard:     auth.NewGuard(tokens, resolver, cfg.Auth.HideResourceExistence),
		Checker:   checker,
		Hasher:    hasher,
		Presigner: parts.presigner,
		Producer:  producer,
		Chatter:   newChatter(cfg),
	})

	a := &API{cfg: cfg, log: log, parts: parts, server: server}
	if cfg.Queue.Driver == config.QueueDriverMemory {
		a.worker = newWorker(parts)
	}
	return a, nil
}

// Handler exposes the router for in-process tests.
func (a *API) Handler() stdhttp.Handler {
	return a.server.Handler()
}

// Start blocks serving HTTP until Shutdown is called.
func (a *API) Start() error {
	if a.worker != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopWork = cancel
		a.log.Info().Msg(msgEmbeddedWorker)
		go func() {
			if err := a.worker.Run(ctx); err != nil {
				a.log.Error().Err(err).Msg(msgEmbeddedWorkerFailed)
			}
		}()
	}

	a.log.Info().Str("port", a.cfg.Server.Port).Msg(msgStartingServer)
	if err := a.server.Start(serverAddrPrefix + a.cfg.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return fmt.Errorf(errServerFmt, err)
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.stopWork != nil {
		a.stopWork()
	}
	err := a.server.Shutdown(ctx)
	a.parts.close()
	return err
}

// Worker is the consumer process: the long-poll loop plus the stale task
// reaper.
type Worker struct {
	parts  *components
	worker *pipeline.Worker
	reaper *pipeline.Reaper
}

// NewWorker opens its own store and broker connections.
func NewWorker(cfg *config.Config, log zerolog.Logger) (*Worker, error) {
	parts, err := initComponents(cfg, log)
	if err != nil {
		return nil, err
	}
	return newWorker(parts), nil
}

func newWorker(parts *components) *Worker {
	log := parts.log.With().Str("component", "worker").Logger()
	return &Worker{
		parts:  parts,
		worker: pipeline.NewWorker(parts.broker, parts.store.Tasks, newProcessors(parts.cfg, parts.store, parts.presigner), log),
		reaper: pipeline.NewReaper(parts.store.Tasks, parts.cfg.Worker.StaleAfter, parts.cfg.Worker.ReapInterval, log),
	}
}

// Run consumes until ctx is canceled. The reaper runs alongside.
func (w *Worker) Run(ctx context.Context) error {
	go w.reaper.Run(ctx)
	return w.worker.Run(ctx)
}

// Reap runs one stale task sweep.
func (w *Worker) Reap(ctx context.Context) (int64, error) {
	return w.reaper.RunOnce(ctx)
}

// HandleSQSEvent is the Lambda handler; SQS deletes what it does not report.
func (w *Worker) HandleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	return w.worker.HandleSQSEvent(ctx, event)
}

func (w *Worker) Close() {
	w.parts.close()
}

// Broker exposes the worker's broker, which tests feed directly.
func (w *Worker) Broker() queue.Broker {
	return w.parts.broker
}
