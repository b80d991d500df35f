package service

import (
	"context"
	"errors"
	"time"

	"socialcredit-api/internal/model"
	"socialcredit-api/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/codes"
)

// LedgerOperations counts service operations by name and outcome.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "socialcredit",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Ledger operations by operation and result.",
}, []string{"operation", "result"})

// CreditsMoved counts credits that changed hands, by source.
var CreditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "socialcredit",
	Subsystem: "ledger",
	Name:      "credits_moved_total",
	Help:      "Credits moved by transfers and reward payouts.",
}, []string{"source"})

// VerifierLatency tracks Mojang profile lookups.
var VerifierLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "socialcredit",
	Subsystem: "verifier",
	Name:      "lookup_seconds",
	Help:      "Latency of external identity lookups.",
	Buckets:   prometheus.DefBuckets,
}, []string{"result"})

// SessionEvents counts manual entry session transitions.
var SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "socialcredit",
	Subsystem: "admin",
	Name:      "session_events_total",
	Help:      "Manual balance entry sessions by event.",
}, []string{"event"})

// StoreGauges mirror the store statistics sampled by StatsCollector.
var StoreGauges = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "socialcredit",
	Subsystem: "store",
	Name:      "objects",
	Help:      "Row counts and totals reported by the ledger store.",
}, []string{"stat"})

// startOp opens a span for a ledger operation. The returned func records
// the outcome on the span and in LedgerOperations.
func startOp(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := tracing.StartSpan(ctx, "ledger."+operation)
	return ctx, func(err error) {
		observe(operation, err)
		if err != nil {
			span.RecordError(err)
			// domain rejections are expected outcomes, not span failures
			if !isDomainError(err) {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
	}
}

var domainErrors = []error{
	model.ErrNotFound, model.ErrDuplicateIdentity, model.ErrAlreadyLinked,
	model.ErrUnknownExternalIdentity, model.ErrIdentityMismatch, model.ErrIdentityTaken,
	model.ErrUnknownRecipient, model.ErrInvalidAmount, model.ErrInsufficientFunds,
	model.ErrSelfTransfer, model.ErrRecipientNotReady, model.ErrLedgerExists,
	model.ErrDuplicateItem, model.ErrAlreadyClaimed, model.ErrClaimerNotReady,
	model.ErrNotClaimedByUser, model.ErrAlreadyPaid,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LedgerOperations.WithLabelValues(operation, result).Inc()
}

func observeLookup(start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	VerifierLatency.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
