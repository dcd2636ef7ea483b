package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"paycalc/internal/amqp"
	"paycalc/internal/core"
	"paycalc/internal/log"
	"paycalc/internal/services"
	"paycalc/internal/store"
	"paycalc/internal/tracker"
)

// DefaultConcurrency bounds the number of periods exported at once.
const DefaultConcurrency = 4

// PeriodExporter writes one period to a spreadsheet.
type PeriodExporter interface {
	ExportPeriod(ctx context.Context, p core.PayPeriod, accounts []core.PayPeriodBankAccount, expenses []core.PayPeriodExpense) (string, error)
}

// ExportWorker keeps spreadsheet tabs in step with state change messages.
type ExportWorker struct {
	periods     *services.PeriodRepository
	exporter    PeriodExporter
	logger      *log.Logger
	concurrency int
}

func NewExportWorker(periods *services.PeriodRepository, exporter PeriodExporter, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		periods:     periods,
		exporter:    exporter,
		logger:      log.OrDiscard(logger).WithComponent(log.ComponentWorker),
		concurrency: DefaultConcurrency,
	}
}

// WithConcurrency sets how many periods ExportAll writes in parallel.
func (w *ExportWorker) WithConcurrency(n int) *ExportWorker {
	if n > 0 {
		w.concurrency = n
	}
	return w
}

// Scope says how much a message invalidates.
type Scope int

const (
	ScopeNone Scope = iota
	ScopePeriod
	ScopeAllPeriods
)

// ScopeOf maps a message kind to the periods it can change. Master data
// edits reach every period through propagation.
func ScopeOf(msg *amqp.StateChangeMessage) Scope {
	if msg.UserUID == "" {
		return ScopeNone
	}
	switch tracker.EventKind(msg.Kind) {
	case tracker.EventPeriodOpened, tracker.EventPeriodReset,
		tracker.EventExpenseAssigned, tracker.EventExpenseUnassigned,
		tracker.EventPaidStatusChanged,
		tracker.EventPeriodAccountDeleted, tracker.EventPeriodExpenseDeleted:
		if msg.PeriodID == "" {
			return ScopeNone
		}
		return ScopePeriod
	case tracker.EventBankAccountCreated, tracker.EventExpenseCreated,
		tracker.EventPeriodsSynced:
		return ScopeAllPeriods
	default:
		return ScopeNone
	}
}

// HandleStateChange re-exports whatever the message touched.
func (w *ExportWorker) HandleStateChange(ctx context.Context, msg *amqp.StateChangeMessage) error {
	switch ScopeOf(msg) {
	case ScopePeriod:
		w.logger.DebugContext(ctx, "Processing state change",
			log.FieldEvent, msg.Kind,
			log.FieldPeriodID, msg.PeriodID)
		return w.ExportPeriodByID(ctx, msg.UserUID, msg.PeriodID)
	case ScopeAllPeriods:
		w.logger.DebugContext(ctx, "Processing state change",
			log.FieldEvent, msg.Kind,
			log.FieldUserUID, msg.UserUID)
		_, err := w.ExportAll(ctx, msg.UserUID)
		return err
	default:
		return nil
	}
}

// ExportPeriodByID exports a stored period. A period that no longer exists
// is skipped.
func (w *ExportWorker) ExportPeriodByID(ctx context.Context, uid, periodID string) error {
	p, err := w.periods.Get(ctx, uid, periodID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.InfoContext(ctx, "Period gone, skipping export", log.FieldPeriodID, periodID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get period %s: %w", periodID, err)
	}
	return w.export(ctx, uid, p)
}

// ExportAll exports every stored period of a user and returns how many were
// written.
func (w *ExportWorker) ExportAll(ctx context.Context, uid string) (int, error) {
	start := time.Now()
	periods, err := w.periods.ListPeriods(ctx, uid)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, p := range periods {
		g.Go(func() error {
			return w.export(gctx, uid, p)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	w.logger.InfoContext(ctx, "Exported all periods",
		log.FieldOperation, log.OpExport,
		log.FieldUserUID, uid,
		log.FieldCount, len(periods),
		log.FieldDuration, time.Since(start).Milliseconds())
	return len(periods), nil
}

func (w *ExportWorker) export(ctx context.Context, uid string, p core.PayPeriod) error {
	accounts, err := w.periods.PeriodAccounts(ctx, uid, p.ID)
	if err != nil {
		return err
	}
	expenses, err := w.periods.PeriodExpenses(ctx, uid, p.ID)
	if err != nil {
		return err
	}
	ref, err := w.exporter.ExportPeriod(ctx, p, accounts, expenses)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export period",
			log.FieldPeriodID, p.ID,
			log.FieldError, err)
		return fmt.Errorf("export period %s: %w", p.ID, err)
	}
	w.logger.InfoContext(ctx, "Exported period",
		log.FieldPeriodID, p.ID,
		"sheets_ref", ref)
	return nil
}
