// Package occurrence implements the occurrence-processing engine: the daily
// batch step that decides which recurring notifications are due, fans out
// one todo per target user, and records each fully processed occurrence in
// the ledger exactly once.
package occurrence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/domain/recurrence"
	"github.com/ticklerhq/tickler/internal/platform/logger"
	"github.com/ticklerhq/tickler/internal/platform/metrics"
	"github.com/ticklerhq/tickler/internal/store"
)

// Result is the aggregate outcome of one processing run. Failures never
// propagate past the processor; they are folded into Errors and
// ErrorMessages, which are human-readable strings intended for logs and
// audit rather than programmatic branching.
type Result struct {
	NotificationsProcessed int      `json:"notifications_processed"`
	TodosCreated           int      `json:"todos_created"`
	Errors                 int      `json:"errors"`
	ErrorMessages          []string `json:"error_messages,omitempty"`
}

// Processor walks active recurring notifications once per invocation,
// sequentially and without internal parallelism. Idempotency comes from the
// ledger: an entry is written strictly after a notification's fan-out
// succeeded, so a notification that failed mid-fan-out has no entry and is
// retried wholesale on the next run, while a fully processed one is skipped.
type Processor struct {
	notifications store.NotificationStore
	users         store.UserStore
	todos         store.TodoStore
	states        store.NotificationStateStore
	ledger        store.OccurrenceStore

	// loc is the recipients' time zone; "today" is their calendar day,
	// not the server's.
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Config collects the processor's dependencies.
type Config struct {
	Notifications store.NotificationStore
	Users         store.UserStore
	Todos         store.TodoStore
	States        store.NotificationStateStore
	Ledger        store.OccurrenceStore

	// Location the recipients' calendar day is evaluated in. Defaults to UTC.
	Location *time.Location

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// NewProcessor creates a Processor from the given dependencies.
func NewProcessor(cfg Config) *Processor {
	if cfg.Notifications == nil || cfg.Users == nil || cfg.Todos == nil ||
		cfg.States == nil || cfg.Ledger == nil {
		panic("occurrence: all stores must be provided")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Processor{
		notifications: cfg.Notifications,
		users:         cfg.Users,
		todos:         cfg.Todos,
		states:        cfg.States,
		ledger:        cfg.Ledger,
		loc:           loc,
		now:           now,
		logger:        log.With(slog.String("component", "occurrence_processor")),
	}
}

// ProcessRecurringNotifications runs one processing pass for "today" and
// returns the aggregate result. It never returns an error: every failure is
// captured in the result, and a failure on one notification does not stop
// the others.
func (p *Processor) ProcessRecurringNotifications(ctx context.Context) Result {
	started := p.now()
	defer func() {
		metrics.ProcessingDuration.Observe(p.now().Sub(started).Seconds())
	}()

	log := logger.FromContextOrDefault(ctx, p.logger)
	now := p.now()
	today := domain.OccurrenceDay(now)

	var result Result

	due, filterErrs := p.discoverDue(ctx, now, today, log)
	for _, msg := range filterErrs {
		result.Errors++
		result.ErrorMessages = append(result.ErrorMessages, msg)
	}

	log.Info("occurrence processing started",
		slog.Time("occurrence_date", today),
		slog.Int("due_notifications", len(due)))

	for _, n := range due {
		created, err := p.processOne(ctx, n, today, log)
		if err != nil {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages,
				fmt.Sprintf("notification %s: %v", n.ID, err))
			log.Error("notification processing failed",
				slog.String("notification_id", n.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		result.NotificationsProcessed++
		result.TodosCreated += created
		metrics.NotificationsProcessed.Inc()
		metrics.TodosCreated.Add(float64(created))
	}

	log.Info("occurrence processing finished",
		slog.Int("notifications_processed", result.NotificationsProcessed),
		slog.Int("todos_created", result.TodosCreated),
		slog.Int("errors", result.Errors))

	return result
}

// discoverDue fetches eligible notifications and filters them down to the
// ones due today and not yet in the ledger. Filter failures are returned as
// messages so the run's aggregate result reflects them; they never stop the
// remaining notifications.
func (p *Processor) discoverDue(ctx context.Context, now, today time.Time, log *slog.Logger) ([]*domain.Notification, []string) {
	candidates, err := p.notifications.FindActiveRecurringWithAction(ctx, now)
	if err != nil {
		return nil, []string{fmt.Sprintf("discover notifications: %v", err)}
	}

	var due []*domain.Notification
	var errs []string
	for _, n := range candidates {
		// FindActiveRecurringWithAction guarantees these, but the filter is
		// cheap and keeps the processor safe against other store
		// implementations.
		if n.Recurrence == nil || n.Action == nil || !n.Action.IsActionable() {
			continue
		}

		deliver, err := recurrence.ShouldDeliverOn(*n.Recurrence, today, p.loc)
		if err != nil {
			// Uninitialized random rule or unknown kind: a contract
			// violation for this notification, fatal to its evaluation but
			// not to the run.
			log.Error("recurrence evaluation failed",
				slog.String("notification_id", n.ID.String()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Sprintf("notification %s: evaluate recurrence: %v", n.ID, err))
			continue
		}
		if !deliver {
			continue
		}

		done, err := p.ledger.Exists(ctx, n.ID, today)
		if err != nil {
			log.Error("ledger lookup failed",
				slog.String("notification_id", n.ID.String()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Sprintf("notification %s: ledger lookup: %v", n.ID, err))
			continue
		}
		if done {
			log.Debug("occurrence already processed",
				slog.String("notification_id", n.ID.String()))
			continue
		}

		due = append(due, n)
	}

	return due, errs
}

// processOne handles a single due notification: resolve targets, fan out
// todos, reset read state, commit the ledger entry. Returns the number of
// todos created. The ledger write happens strictly after a fully successful
// fan-out; the first per-user failure aborts the remaining fan-out and the
// ledger write, so the whole notification is retried on the next run.
func (p *Processor) processOne(ctx context.Context, n *domain.Notification, today time.Time, log *slog.Logger) (int, error) {
	targetIDs, err := p.resolveTargets(ctx, n)
	if err != nil {
		metrics.ProcessingErrors.WithLabelValues("targets").Inc()
		return 0, fmt.Errorf("resolve targets: %w", err)
	}

	created := 0
	for _, userID := range targetIDs {
		if err := p.createTodoFor(ctx, n, userID); err != nil {
			metrics.ProcessingErrors.WithLabelValues("fan_out").Inc()
			return 0, fmt.Errorf("fan-out after %d of %d todos: %w", created, len(targetIDs), err)
		}
		created++
	}

	// Read-state reset is non-blocking: a failure is logged and the
	// occurrence still commits.
	if reset, err := p.states.ResetReadState(ctx, n.ID); err != nil {
		log.Warn("read state reset failed",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()))
	} else if reset > 0 {
		log.Debug("read state reset",
			slog.String("notification_id", n.ID.String()),
			slog.Int("records", reset))
	}

	entry, err := domain.NewProcessedOccurrence(n.ID, today, created)
	if err != nil {
		metrics.ProcessingErrors.WithLabelValues("ledger_write").Inc()
		return 0, fmt.Errorf("build ledger entry: %w", err)
	}
	if err := p.ledger.MarkProcessed(ctx, entry); err != nil {
		if store.IsDuplicateError(err) {
			// A concurrent run committed this occurrence between our Exists
			// check and now. Its fan-out won; ours duplicated some todos,
			// which the design accepts over losing an occurrence.
			log.Warn("occurrence committed by concurrent run",
				slog.String("notification_id", n.ID.String()))
			return created, nil
		}
		metrics.ProcessingErrors.WithLabelValues("ledger_write").Inc()
		// Fan-out already happened; without a ledger entry the next run
		// will process this notification again. The trade-off favors never
		// losing an occurrence over never duplicating one.
		return 0, fmt.Errorf("ledger write after successful fan-out: %w", err)
	}

	log.Info("notification occurrence processed",
		slog.String("notification_id", n.ID.String()),
		slog.Int("todos_created", created))
	return created, nil
}

// resolveTargets returns the user IDs a notification fans out to: every
// enabled user for a global notification, the explicit target set otherwise.
func (p *Processor) resolveTargets(ctx context.Context, n *domain.Notification) ([]uuid.UUID, error) {
	if n.IsGlobal {
		ids, err := p.users.ListEnabledIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list enabled users: %w", err)
		}
		return ids, nil
	}
	return n.TargetUserIDs, nil
}

// createTodoFor resolves the user's display handle and creates one todo
// carrying the notification's action and provenance.
func (p *Processor) createTodoFor(ctx context.Context, n *domain.Notification, userID uuid.UUID) error {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve user %s: %w", userID, err)
	}

	todo, err := domain.NewTodoFromNotification(
		user.DisplayName,
		n.Action.Description,
		n.Action.Category,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("build todo for user %s: %w", userID, err)
	}

	if err := p.todos.Create(ctx, todo); err != nil {
		return fmt.Errorf("create todo for user %s: %w", userID, err)
	}
	return nil
}

// NextDelivery forecasts the next occurrence day of a notification's rule
// after today. The boolean is false when no occurrence falls inside the
// 366-day forecast window.
func (p *Processor) NextDelivery(ctx context.Context, notificationID uuid.UUID) (time.Time, bool, error) {
	n, err := p.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return time.Time{}, false, err
	}
	if n.Recurrence == nil {
		return time.Time{}, false, nil
	}
	return recurrence.NextDeliveryDate(*n.Recurrence, p.now(), p.loc)
}
