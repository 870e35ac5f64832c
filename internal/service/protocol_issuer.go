package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ecotrail/trail-booking/internal/metrics"
	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultProtocolPrefix   = "ECO"
	defaultProtocolAttempts = 5
	protocolSuffixSpace     = 10000
	fallbackSuffixLen       = 8
)

// ProtocolIssuerConfig contains configuration for protocol issuance
type ProtocolIssuerConfig struct {
	Prefix      string
	MaxAttempts int
	Location    *time.Location

	// Hooks for tests; nil uses the real clock and random sources
	Now      func() time.Time
	Suffix   func() int
	Fallback func() string
}

// ProtocolIssuer generates PREFIX-YYYYMM-NNNN codes by probing the booking
// table for a free random suffix
type ProtocolIssuer struct {
	prefix      string
	maxAttempts int
	loc         *time.Location
	now         func() time.Time
	suffix      func() int
	fallback    func() string
	log         *logger.Logger
}

// NewProtocolIssuer creates a protocol issuer
func NewProtocolIssuer(cfg *ProtocolIssuerConfig, log *logger.Logger) *ProtocolIssuer {
	p := &ProtocolIssuer{
		prefix:      defaultProtocolPrefix,
		maxAttempts: defaultProtocolAttempts,
		loc:         time.UTC,
		now:         time.Now,
		suffix:      func() int { return rand.IntN(protocolSuffixSpace) },
		fallback:    fallbackSuffix,
		log:         log,
	}
	if cfg != nil {
		if cfg.Prefix != "" {
			p.prefix = cfg.Prefix
		}
		if cfg.MaxAttempts > 0 {
			p.maxAttempts = cfg.MaxAttempts
		}
		if cfg.Location != nil {
			p.loc = cfg.Location
		}
		if cfg.Now != nil {
			p.now = cfg.Now
		}
		if cfg.Suffix != nil {
			p.suffix = cfg.Suffix
		}
		if cfg.Fallback != nil {
			p.fallback = cfg.Fallback
		}
	}
	if p.log == nil {
		p.log = logger.Get()
	}
	return p
}

// Issue returns a protocol code not held by any booking visible to bookings.
// The storage uniqueness constraint remains the final guard.
func (p *ProtocolIssuer) Issue(ctx context.Context, bookings repository.BookingRepository) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.protocol.issue")
	defer span.End()

	month := p.MonthPrefix()
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		code := fmt.Sprintf("%s-%04d", month, p.suffix()%protocolSuffixSpace)
		taken, err := bookings.ProtocolExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			span.SetAttributes(attribute.Int("attempts", attempt))
			return code, nil
		}
	}

	code := month + "-" + p.fallback()
	span.SetAttributes(attribute.Bool("fallback", true))
	metrics.RecordProtocolFallback(ctx, p.prefix)
	p.log.Warn("protocol probes exhausted, using fallback suffix",
		zap.String("protocol", code),
		zap.Int("attempts", p.maxAttempts),
	)
	return code, nil
}

// MonthPrefix returns PREFIX-YYYYMM for the current month
func (p *ProtocolIssuer) MonthPrefix() string {
	return p.prefix + "-" + p.now().In(p.loc).Format("200601")
}

func fallbackSuffix() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:fallbackSuffixLen])
}
