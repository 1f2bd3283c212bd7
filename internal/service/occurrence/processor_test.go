package occurrence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/domain/recurrence"
	"github.com/ticklerhq/tickler/internal/store"
)

// fixedNow is a Monday. Daily and Monday-weekly rules are due on it.
var fixedNow = time.Date(2024, time.April, 15, 10, 30, 0, 0, time.UTC)

type fakeNotificationStore struct {
	notifications []*domain.Notification
	findErr       error
}

func (f *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeNotificationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	for _, n := range f.notifications {
		if n.ID == id && !n.Deleted {
			return n, nil
		}
	}
	return nil, store.ErrNotificationNotFound
}

func (f *fakeNotificationStore) FindActiveRecurringWithAction(_ context.Context, now time.Time) ([]*domain.Notification, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []*domain.Notification
	for _, n := range f.notifications {
		if n.Deleted || n.Recurrence == nil || n.Action == nil || !n.Action.IsActionable() || n.IsExpired(now) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

type fakeUserStore struct {
	users      map[uuid.UUID]*domain.User
	getErrFor  map[uuid.UUID]error
	enabledIDs []uuid.UUID
	listErr    error
}

func (f *fakeUserStore) Create(_ context.Context, u *domain.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if err := f.getErrFor[id]; err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) ListEnabledIDs(_ context.Context) ([]uuid.UUID, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.enabledIDs, nil
}

type fakeTodoStore struct {
	todos []*domain.Todo

	// failForSource aborts creation of todos whose provenance names the
	// given notification, after allowFirst successes.
	failForSource uuid.UUID
	allowFirst    int
	created       int
	events        *[]string
}

func (f *fakeTodoStore) Create(_ context.Context, todo *domain.Todo) error {
	if f.failForSource != uuid.Nil && todo.SourceNotificationID != nil &&
		*todo.SourceNotificationID == f.failForSource {
		if f.created >= f.allowFirst {
			return errors.New("todo insert failed")
		}
		f.created++
	}
	f.todos = append(f.todos, todo)
	if f.events != nil {
		*f.events = append(*f.events, "todo:"+todo.OwnerHandle)
	}
	return nil
}

func (f *fakeTodoStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Todo, error) {
	for _, td := range f.todos {
		if td.ID == id {
			return td, nil
		}
	}
	return nil, store.ErrTodoNotFound
}

func (f *fakeTodoStore) ListByOwner(_ context.Context, owner string) ([]*domain.Todo, error) {
	var out []*domain.Todo
	for _, td := range f.todos {
		if td.OwnerHandle == owner {
			out = append(out, td)
		}
	}
	return out, nil
}

func (f *fakeTodoStore) countForSource(id uuid.UUID) int {
	n := 0
	for _, td := range f.todos {
		if td.SourceNotificationID != nil && *td.SourceNotificationID == id {
			n++
		}
	}
	return n
}

type fakeStateStore struct {
	resets map[uuid.UUID]int
	err    error
}

func (f *fakeStateStore) ResetReadState(_ context.Context, notificationID uuid.UUID) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.resets == nil {
		f.resets = make(map[uuid.UUID]int)
	}
	f.resets[notificationID]++
	return 2, nil
}

type occurrenceKey struct {
	notificationID uuid.UUID
	day            time.Time
}

type fakeLedger struct {
	entries   map[occurrenceKey]*domain.ProcessedOccurrence
	existsErr error
	markErr   error
	events    *[]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[occurrenceKey]*domain.ProcessedOccurrence)}
}

func (f *fakeLedger) Exists(_ context.Context, notificationID uuid.UUID, day time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.entries[occurrenceKey{notificationID, domain.OccurrenceDay(day)}]
	return ok, nil
}

func (f *fakeLedger) MarkProcessed(_ context.Context, entry *domain.ProcessedOccurrence) error {
	if f.markErr != nil {
		return f.markErr
	}
	key := occurrenceKey{entry.NotificationID, domain.OccurrenceDay(entry.OccurrenceDate)}
	if _, ok := f.entries[key]; ok {
		return store.ErrOccurrenceExists
	}
	f.entries[key] = entry
	if f.events != nil {
		*f.events = append(*f.events, "ledger:"+entry.NotificationID.String())
	}
	return nil
}

type fixture struct {
	notifications *fakeNotificationStore
	users         *fakeUserStore
	todos         *fakeTodoStore
	states        *fakeStateStore
	ledger        *fakeLedger
	processor     *Processor
}

func newFixture(t *testing.T, userCount int) *fixture {
	t.Helper()

	users := &fakeUserStore{users: make(map[uuid.UUID]*domain.User), getErrFor: make(map[uuid.UUID]error)}
	for i := 0; i < userCount; i++ {
		u, err := domain.NewUser(fmt.Sprintf("user%d", i+1), "")
		require.NoError(t, err)
		users.users[u.ID] = u
		users.enabledIDs = append(users.enabledIDs, u.ID)
	}

	f := &fixture{
		notifications: &fakeNotificationStore{},
		users:         users,
		todos:         &fakeTodoStore{},
		states:        &fakeStateStore{},
		ledger:        newFakeLedger(),
	}
	f.processor = NewProcessor(Config{
		Notifications: f.notifications,
		Users:         f.users,
		Todos:         f.todos,
		States:        f.states,
		Ledger:        f.ledger,
		Location:      time.UTC,
		Now:           func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) addGlobalDaily(t *testing.T, title string) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(title, true, nil)
	require.NoError(t, err)
	rule := recurrence.NewDaily()
	n.Recurrence = &rule
	n.Action = &domain.ActionItem{Description: "water the plants", Category: "chores"}
	f.notifications.notifications = append(f.notifications.notifications, n)
	return n
}

func TestProcessGlobalFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	n := f.addGlobalDaily(t, "plant day")

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Equal(t, 1, result.NotificationsProcessed)
	assert.Equal(t, 3, result.TodosCreated)
	assert.Zero(t, result.Errors)
	assert.Len(t, f.todos.todos, 3)
	assert.Equal(t, 1, f.states.resets[n.ID])

	for _, td := range f.todos.todos {
		assert.True(t, td.CreatedFromNotification)
		require.NotNil(t, td.SourceNotificationID)
		assert.Equal(t, n.ID, *td.SourceNotificationID)
		assert.Equal(t, "water the plants", td.Description)
		assert.Equal(t, "chores", td.Category)
	}

	done, err := f.ledger.Exists(context.Background(), n.ID, fixedNow)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestProcessTargetedFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4)
	targets := f.users.enabledIDs[:2]

	n, err := domain.NewNotification("for two", false, targets)
	require.NoError(t, err)
	rule := recurrence.NewDaily()
	n.Recurrence = &rule
	n.Action = &domain.ActionItem{Description: "file the report"}
	f.notifications.notifications = append(f.notifications.notifications, n)

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Equal(t, 1, result.NotificationsProcessed)
	assert.Equal(t, 2, result.TodosCreated)
	require.Len(t, f.todos.todos, 2)
	assert.Equal(t, "user1", f.todos.todos[0].OwnerHandle)
	assert.Equal(t, "user2", f.todos.todos[1].OwnerHandle)
}

func TestProcessIsIdempotentAcrossRuns(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	f.addGlobalDaily(t, "plant day")

	first := f.processor.ProcessRecurringNotifications(context.Background())
	assert.Equal(t, 3, first.TodosCreated)

	for i := 0; i < 4; i++ {
		again := f.processor.ProcessRecurringNotifications(context.Background())
		assert.Zero(t, again.NotificationsProcessed)
		assert.Zero(t, again.TodosCreated)
		assert.Zero(t, again.Errors)
	}

	assert.Len(t, f.todos.todos, 3)
	assert.Len(t, f.ledger.entries, 1)
}

func TestProcessSkipsNotDueToday(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)

	// fixedNow is a Monday; a Tuesday-weekly rule is not due.
	n, err := domain.NewNotification("tuesdays only", true, nil)
	require.NoError(t, err)
	rule, err := recurrence.NewWeekly(2)
	require.NoError(t, err)
	n.Recurrence = &rule
	n.Action = &domain.ActionItem{Description: "take out recycling"}
	f.notifications.notifications = append(f.notifications.notifications, n)

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Zero(t, result.NotificationsProcessed)
	assert.Zero(t, result.TodosCreated)
	assert.Zero(t, result.Errors)
	assert.Empty(t, f.todos.todos)
	assert.Empty(t, f.ledger.entries)
}

func TestProcessSkipsExpiredAndNonActionable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)

	expired := f.addGlobalDaily(t, "expired")
	past := fixedNow.Add(-time.Hour)
	expired.ExpiresAt = &past

	blankAction := f.addGlobalDaily(t, "blank action")
	blankAction.Action = &domain.ActionItem{Description: "   "}

	noRule := f.addGlobalDaily(t, "no recurrence")
	noRule.Recurrence = nil

	live := f.addGlobalDaily(t, "live")

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Equal(t, 1, result.NotificationsProcessed)
	assert.Equal(t, 2, result.TodosCreated)
	assert.Len(t, f.ledger.entries, 1)
	_, ok := f.ledger.entries[occurrenceKey{live.ID, domain.OccurrenceDay(fixedNow)}]
	assert.True(t, ok)
}

func TestProcessIsolatesFailuresPerNotification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	first := f.addGlobalDaily(t, "first")
	failing := f.addGlobalDaily(t, "failing")
	third := f.addGlobalDaily(t, "third")

	// Every todo insert for the middle notification fails.
	f.todos.failForSource = failing.ID

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Equal(t, 2, result.NotificationsProcessed)
	assert.Equal(t, 4, result.TodosCreated)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorMessages, 1)
	assert.Contains(t, result.ErrorMessages[0], failing.ID.String())

	assert.Len(t, f.ledger.entries, 2)
	_, ok := f.ledger.entries[occurrenceKey{first.ID, domain.OccurrenceDay(fixedNow)}]
	assert.True(t, ok)
	_, ok = f.ledger.entries[occurrenceKey{failing.ID, domain.OccurrenceDay(fixedNow)}]
	assert.False(t, ok, "failed notification must not be committed to the ledger")
	_, ok = f.ledger.entries[occurrenceKey{third.ID, domain.OccurrenceDay(fixedNow)}]
	assert.True(t, ok)
}

func TestProcessPartialFanOutRetriesWholeNotification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	n := f.addGlobalDaily(t, "flaky")

	// First run: one todo succeeds, the second insert fails.
	f.todos.failForSource = n.ID
	f.todos.allowFirst = 1

	result := f.processor.ProcessRecurringNotifications(context.Background())
	assert.Zero(t, result.NotificationsProcessed)
	assert.Zero(t, result.TodosCreated)
	assert.Equal(t, 1, result.Errors)
	assert.Empty(t, f.ledger.entries, "no ledger entry after a partial fan-out")
	assert.Equal(t, 1, f.todos.countForSource(n.ID))

	// Second run: the store recovers and the whole fan-out is replayed.
	f.todos.failForSource = uuid.Nil

	result = f.processor.ProcessRecurringNotifications(context.Background())
	assert.Equal(t, 1, result.NotificationsProcessed)
	assert.Equal(t, 3, result.TodosCreated)
	assert.Zero(t, result.Errors)
	assert.Len(t, f.ledger.entries, 1)

	// The retry duplicates the already-created todo. Accepted: the ledger
	// protects occurrences, not individual todo rows.
	assert.Equal(t, 4, f.todos.countForSource(n.ID))
}

func TestProcessLedgerWriteFollowsFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	n := f.addGlobalDaily(t, "ordered")

	var events []string
	f.todos.events = &events
	f.ledger.events = &events

	result := f.processor.ProcessRecurringNotifications(context.Background())
	require.Equal(t, 1, result.NotificationsProcessed)

	require.Equal(t, []string{
		"todo:user1",
		"todo:user2",
		"ledger:" + n.ID.String(),
	}, events)
}

func TestProcessTreatsConcurrentDuplicateAsSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.addGlobalDaily(t, "raced")

	f.ledger.markErr = store.ErrOccurrenceExists

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Equal(t, 1, result.NotificationsProcessed)
	assert.Equal(t, 2, result.TodosCreated)
	assert.Zero(t, result.Errors)
}

func TestProcessLedgerWriteFailureCountsAsError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.addGlobalDaily(t, "ledger down")

	f.ledger.markErr = errors.New("connection reset")

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Zero(t, result.NotificationsProcessed)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorMessages, 1)
	assert.Contains(t, result.ErrorMessages[0], "ledger write")
}

func TestProcessStateResetFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	n := f.addGlobalDaily(t, "state store down")

	f.states.err = errors.New("state table locked")

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Equal(t, 1, result.NotificationsProcessed)
	assert.Equal(t, 2, result.TodosCreated)
	assert.Zero(t, result.Errors)
	_, ok := f.ledger.entries[occurrenceKey{n.ID, domain.OccurrenceDay(fixedNow)}]
	assert.True(t, ok, "occurrence commits even when the read-state reset fails")
}

func TestProcessUninitializedRandomRuleIsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)

	broken, err := domain.NewNotification("never initialized", true, nil)
	require.NoError(t, err)
	rule := recurrence.NewRandomWeekly()
	broken.Recurrence = &rule
	broken.Action = &domain.ActionItem{Description: "mystery chore"}
	f.notifications.notifications = append(f.notifications.notifications, broken)

	f.addGlobalDaily(t, "healthy")

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Equal(t, 1, result.NotificationsProcessed)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorMessages, 1)
	assert.Contains(t, result.ErrorMessages[0], broken.ID.String())
}

func TestProcessDiscoveryFailureIsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.notifications.findErr = errors.New("database offline")

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Zero(t, result.NotificationsProcessed)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorMessages, 1)
	assert.Contains(t, result.ErrorMessages[0], "discover notifications")
}

func TestProcessLedgerLookupFailureIsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.addGlobalDaily(t, "lookup broken")
	f.ledger.existsErr = errors.New("timeout")

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Zero(t, result.NotificationsProcessed)
	assert.Equal(t, 1, result.Errors)
	assert.Empty(t, f.todos.todos)
}

func TestProcessTargetUserResolutionFailureAbortsNotification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	n := f.addGlobalDaily(t, "user gone")
	f.users.getErrFor[f.users.enabledIDs[1]] = store.ErrUserNotFound

	result := f.processor.ProcessRecurringNotifications(context.Background())

	assert.Zero(t, result.NotificationsProcessed)
	assert.Equal(t, 1, result.Errors)
	assert.Empty(t, f.ledger.entries)
	// The first user's todo was created before the failure; the retry on
	// the next run replays it.
	assert.Equal(t, 1, f.todos.countForSource(n.ID))
}

func TestNextDelivery(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)

	n, err := domain.NewNotification("monthly on the 20th", true, nil)
	require.NoError(t, err)
	rule, err := recurrence.NewMonthly(20)
	require.NoError(t, err)
	n.Recurrence = &rule
	f.notifications.notifications = append(f.notifications.notifications, n)

	next, found, err := f.processor.NextDelivery(context.Background(), n.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC), next)
}

func TestNextDeliveryNonRecurring(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)

	n, err := domain.NewNotification("one-off", true, nil)
	require.NoError(t, err)
	f.notifications.notifications = append(f.notifications.notifications, n)

	_, found, err := f.processor.NextDelivery(context.Background(), n.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNextDeliveryUnknownNotification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	_, _, err := f.processor.NextDelivery(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)
}
