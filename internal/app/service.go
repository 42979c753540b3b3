// Package service wires the role catalog, the profile provider, the guild
// backend and the per-guild request queues into the service the front ends
// talk to.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/autorole/internal/adapters/guild"
	"github.com/okian/autorole/internal/adapters/mq/queue"
	"github.com/okian/autorole/internal/adapters/mq/worker"
	"github.com/okian/autorole/internal/adapters/notify"
	"github.com/okian/autorole/internal/adapters/roles"
	"github.com/okian/autorole/internal/adapters/tenff"
	"github.com/okian/autorole/internal/domain/catalog"
	"github.com/okian/autorole/internal/domain/gate"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
	"github.com/okian/autorole/internal/domain/reconcile"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// Service implements the dependencies of the Discord bot and the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog  *catalog.Catalog
	engine   *reconcile.Engine
	provider profile.Provider
	guild    guild.Guild
	notifier notify.Notifier
	gate     *gate.Gate
	registry *queue.Registry

	// Configuration
	catalogPath        string
	profileBaseURL     string
	completionist      []int
	acquisitionTimeout time.Duration
	queueCapacity      int
	dryRun             bool
	roleNames          map[string]string

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCatalogPath sets the role catalog file.
func WithCatalogPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.catalogPath = path
		}
	}
}

// WithCatalog uses an already parsed catalog instead of reading a file.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithProfileBaseURL points the 10FF provider at another host.
func WithProfileBaseURL(u string) Option {
	return func(s *Service) { s.profileBaseURL = u }
}

// WithCompletionistAchievements overrides the achievements the completionist
// role requires.
func WithCompletionistAchievements(ids []int) Option {
	return func(s *Service) {
		if len(ids) > 0 {
			s.completionist = ids
		}
	}
}

// WithAcquisitionTimeout bounds profile acquisition. Zero disables the bound.
func WithAcquisitionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.acquisitionTimeout = d
		}
	}
}

// WithQueueCapacity bounds the pending requests of each guild.
func WithQueueCapacity(n int) Option {
	return func(s *Service) { s.queueCapacity = n }
}

// WithDryRun computes and reports diffs without mutating roles.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) { s.dryRun = dryRun }
}

// WithRoleNames registers role names with the in-memory guild.
func WithRoleNames(names map[string]string) Option {
	return func(s *Service) { s.roleNames = names }
}

// WithGuild replaces the in-memory guild backend.
func WithGuild(g guild.Guild) Option {
	return func(s *Service) { s.guild = g }
}

// WithProvider replaces the 10FF profile provider.
func WithProvider(p profile.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithNotifier replaces the log notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithGate shares an intake gate with the service.
func WithGate(g *gate.Gate) Option {
	return func(s *Service) {
		if g != nil {
			s.gate = g
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalogPath:        "configs/roles.example.yaml",
		profileBaseURL:     tenff.DefaultBaseURL,
		completionist:      tenff.DefaultCompletionistAchievements,
		acquisitionTimeout: 30 * time.Second,
		dryRun:             true,
		gate:               gate.New(),
		logger:             nil, // replaced when the service starts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the catalog and starts accepting requests.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.catalog == nil {
		c, err := catalog.Load(s.catalogPath)
		if err != nil {
			metrics.RecordErrorByComponent("service", "catalog")
			return fmt.Errorf("%w: %w", ErrStart, err)
		}
		s.catalog = c
	}
	s.engine = reconcile.New(s.catalog)

	if s.provider == nil {
		s.provider = tenff.New(
			tenff.WithBaseURL(s.profileBaseURL),
			tenff.WithCompletionistAchievements(s.completionist),
		)
	}
	if s.guild == nil {
		s.guild = guild.NewMemory(guild.WithRoles(s.roleNames))
		s.logger.Warn(ctx, "no chat platform configured, roles live in memory")
	}
	if s.notifier == nil {
		s.notifier = notify.NewLog(nil)
	}

	processor := worker.NewProcessor(
		s.provider,
		s.guild,
		s.engine,
		roles.NewApplier(s.guild, roles.WithDryRun(s.dryRun)),
		s.notifier,
		worker.WithAcquisitionTimeout(s.acquisitionTimeout),
	)
	s.registry = queue.NewRegistry(processor,
		queue.WithAdmitter(s.gate),
		queue.WithCapacity(s.queueCapacity),
		queue.WithStartHook(s.acknowledgeStart),
	)

	s.started = true
	s.logger.Info(ctx, "role service started",
		logger.String("catalog", s.catalogPath),
		logger.Bool("dry_run", s.dryRun),
		logger.Int("queue_capacity", s.queueCapacity),
		logger.Duration("acquisition_timeout", s.acquisitionTimeout),
	)
	return nil
}

// acknowledgeStart sends the position 0 acknowledgment from the drain
// goroutine, so it always precedes the outcome of the same request.
func (s *Service) acknowledgeStart(ctx context.Context, req model.Request) { //nolint:gocritic // hugeParam: requests are values
	if err := s.notifier.Queued(ctx, req, 0); err != nil {
		metrics.RecordNotificationError("queued")
		s.logger.Warn(ctx, "acknowledgment failed", logger.String("request_id", req.ID), logger.Error(err))
	}
}

// Stop drains the guild queues. Requests still pending when ctx ends are
// dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping role service...")

	err := s.registry.Close(ctx)
	s.started = false
	if err != nil {
		s.logger.Warn(ctx, "role service stopped with pending requests", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "role service stopped")
	return nil
}

// Enqueue submits a request to the queue of its guild and returns its
// position. Position 0 means processing started immediately; the service
// acknowledges those requests itself, callers acknowledge the others.
func (s *Service) Enqueue(ctx context.Context, req model.Request) (int, error) { //nolint:gocritic // hugeParam: requests are values
	s.mu.RLock()
	registry, started := s.registry, s.started
	s.mu.RUnlock()

	if !started {
		return 0, ErrNotStarted
	}
	return registry.Enqueue(ctx, req)
}

// Gate returns the intake gate.
func (s *Service) Gate() *gate.Gate {
	return s.gate
}

// Catalog returns the loaded catalog, nil before Start.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"enabled": s.gate.Enabled(),
		"muted":   len(s.gate.MutedSubjects()),
		"dry_run": s.dryRun,
	}
	if s.started {
		stats["queues"] = s.registry.Stats()
	}
	return stats
}
