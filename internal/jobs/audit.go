// Package jobs holds scheduled maintenance tasks.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/danieceiflora/perdcomp01-sub000/internal/ledger"
)

// Recalculator is satisfied by *ledger.Service.
type Recalculator interface {
	Recalculate(ctx context.Context, claimID uuid.UUID) (ledger.Audit, error)
}

// ClaimLister enumerates the claims to audit.
type ClaimLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// AuditReport summarises one audit run.
type AuditReport struct {
	Checked int
	Drifted []ledger.Audit
	Failed  int
}

// LedgerAudit replays every claim's approved entries and logs the claims
// whose stored balance disagrees. It never writes.
type LedgerAudit struct {
	claims  ClaimLister
	ledger  Recalculator
	logger  *slog.Logger
	timeout time.Duration
}

func NewLedgerAudit(claims ClaimLister, ledger Recalculator, logger *slog.Logger) *LedgerAudit {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerAudit{claims: claims, ledger: ledger, logger: logger, timeout: 30 * time.Minute}
}

// Run audits all claims once.
func (a *LedgerAudit) Run(ctx context.Context) (AuditReport, error) {
	var rep AuditReport
	ids, err := a.claims.ListIDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("list claims: %w", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		audit, err := a.ledger.Recalculate(ctx, id)
		if err != nil {
			rep.Failed++
			a.logger.Error("ledger audit failed", "claim_id", id, "error", err)
			continue
		}
		rep.Checked++
		if audit.Drifted() {
			rep.Drifted = append(rep.Drifted, audit)
			a.logger.Warn("ledger balance drift",
				"claim_id", id,
				"expected", audit.Expected.StringFixed(2),
				"actual", audit.Actual.StringFixed(2),
				"drift", audit.Drift().StringFixed(2),
				"unsnapshotted", audit.Unsnapshotted,
			)
		}
	}
	a.logger.Info("ledger audit finished", "checked", rep.Checked, "drifted", len(rep.Drifted), "failed", rep.Failed)
	if rep.Failed > 0 && rep.Checked == 0 {
		return rep, errors.New("every claim failed to audit")
	}
	return rep, nil
}

// Schedule registers the audit on a new cron with a seconds field, e.g.
// "0 0 2 * * *" for 02:00 daily. Overlapping runs are skipped. The caller
// starts and stops the returned cron.
func (a *LedgerAudit) Schedule(spec string) (*cron.Cron, error) {
	logger := cronLogger{a.logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		_, _ = a.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("audit schedule %q: %w", spec, err)
	}
	a.logger.Info("ledger audit scheduled", "spec", spec)
	return c, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
