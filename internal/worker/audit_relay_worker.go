package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ecotrail/trail-booking/internal/domain"
	"github.com/ecotrail/trail-booking/internal/metrics"
	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/ecotrail/trail-booking/pkg/retry"
	"go.uber.org/zap"
)

// Publisher sends one audit record downstream. *kafka.Producer satisfies it.
type Publisher interface {
	ProduceJSON(ctx context.Context, topic, key string, value interface{}, headers map[string]string) error
}

// AuditRelayConfig contains configuration for the audit relay worker
type AuditRelayConfig struct {
	// PollInterval is the interval between polling for unpublished entries
	PollInterval time.Duration
	// BatchSize is the number of entries to fetch in each poll
	BatchSize int
	Topic     string
	// Retry controls per-entry publish retries
	Retry *retry.Config
}

// DefaultAuditRelayConfig returns default configuration
func DefaultAuditRelayConfig() *AuditRelayConfig {
	return &AuditRelayConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    100,
		Topic:        "booking-audit",
		Retry:        retry.DefaultConfig(),
	}
}

// AuditRelayWorker polls the audit log and publishes new entries to Kafka
type AuditRelayWorker struct {
	audit     repository.AuditRepository
	publisher Publisher
	retrier   *retry.Retrier
	config    *AuditRelayConfig
	log       *logger.Logger
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// NewAuditRelayWorker creates a new audit relay worker
func NewAuditRelayWorker(audit repository.AuditRepository, publisher Publisher, config *AuditRelayConfig, log *logger.Logger) *AuditRelayWorker {
	def := DefaultAuditRelayConfig()
	if config == nil {
		config = def
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Topic == "" {
		config.Topic = def.Topic
	}
	if log == nil {
		log = logger.Get()
	}

	return &AuditRelayWorker{
		audit:     audit,
		publisher: publisher,
		retrier:   retry.New(config.Retry),
		config:    config,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the relay loop
func (w *AuditRelayWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("audit relay worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting audit relay worker",
		zap.String("topic", w.config.Topic),
		zap.Duration("poll_interval", w.config.PollInterval),
	)

	w.wg.Add(1)
	go w.poll(ctx)

	return nil
}

// Stop stops the relay loop and waits for the current batch to finish
func (w *AuditRelayWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping audit relay worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Audit relay worker stopped")
}

func (w *AuditRelayWorker) poll(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.RelayOnce(ctx); err != nil {
				w.log.Error("audit relay batch failed", zap.Error(err))
			}
		}
	}
}

// RelayOnce publishes one batch in creation order and marks what was
// delivered. It stops at the first entry that cannot be published so later
// entries never overtake it.
func (w *AuditRelayWorker) RelayOnce(ctx context.Context) (int, error) {
	entries, err := w.audit.ListUnpublished(ctx, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpublished audit entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	published := make([]string, 0, len(entries))
	var publishErr error
	for _, entry := range entries {
		if err := w.publish(ctx, entry); err != nil {
			publishErr = fmt.Errorf("failed to publish audit entry %s: %w", entry.ID, err)
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) > 0 {
		if err := w.audit.MarkPublished(ctx, published, w.now().UTC()); err != nil {
			// Entries will be sent again on the next poll; consumers dedupe on id.
			metrics.RecordAuditRelay(ctx, 0, len(published))
			return 0, fmt.Errorf("failed to mark audit entries published: %w", err)
		}
	}

	failed := 0
	if publishErr != nil {
		failed = 1
	}
	metrics.RecordAuditRelay(ctx, len(published), failed)
	if len(published) > 0 {
		w.log.Debug("relayed audit entries", zap.Int("count", len(published)))
	}
	return len(published), publishErr
}

func (w *AuditRelayWorker) publish(ctx context.Context, entry *domain.AuditEntry) error {
	headers := map[string]string{"action": string(entry.Action)}
	result := w.retrier.DoWithCallback(ctx, func(ctx context.Context) error {
		return w.publisher.ProduceJSON(ctx, w.config.Topic, entry.BookingID, entry, headers)
	}, func(attempt int, err error, next time.Duration) {
		w.log.Warn("retrying audit publish",
			zap.String("audit_id", entry.ID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	})
	if result.Err != nil {
		if result.LastError != nil {
			return result.LastError
		}
		return result.Err
	}
	return nil
}
