package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronos/internal/model"
)

var (
	jan1 = model.NewDate(2024, time.January, 1)
	jan5 = model.NewDate(2024, time.January, 5)
	feb1 = model.NewDate(2024, time.February, 1)
)

func fixedClock(d model.Date) func() time.Time {
	return func() time.Time { return d.Time(time.UTC).Add(12 * time.Hour) }
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLocation(time.UTC), WithClock(fixedClock(jan5))}, opts...)
	return New(opts...)
}

func ids(items []model.TimelineItem) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

type recordingSink struct {
	got []Reminder
	err error
}

func (r *recordingSink) Notify(rem Reminder) error {
	r.got = append(r.got, rem)
	return r.err
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	a := model.NewTask("a", jan5)
	b := model.NewAllDayEvent("b", jan1)
	c := model.NewEvent("c", jan1, model.NewTimeOfDay(9, 0, 0), model.NewTimeOfDay(10, 0, 0))

	s.Add(a)
	s.Add(b)
	s.Add(c)

	if diff := cmp.Diff([]uuid.UUID{a.ID, b.ID, c.ID}, ids(s.Items())); diff != "" {
		t.Fatalf("Items() order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, s.Len())
}

func TestAddRemoveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	s.Add(model.NewTask("keep 1", jan1))
	s.Add(model.NewEvent("keep 2", jan1, model.NewTimeOfDay(8, 0, 0), model.NewTimeOfDay(9, 0, 0)))
	before := s.Items()

	x := model.NewTask("temp", jan5, model.WithDeadline(feb1, nil))
	s.Add(x)
	require.True(t, s.Remove(x.ID))

	assert.Equal(t, before, s.Items())
}

func TestUnknownIDIsNoOp(t *testing.T) {
	s := newTestStore(t)
	s.Add(model.NewTask("task", jan1))
	s.Add(model.NewAllDayEvent("event", jan1))
	before := s.Items()

	unknown := uuid.New()
	ghost := model.NewTask("ghost", jan1, model.WithID(unknown))

	assert.False(t, s.Remove(unknown))
	assert.False(t, s.Update(ghost))
	assert.False(t, s.ToggleComplete(unknown))
	assert.Zero(t, s.MoveItems([]uuid.UUID{unknown}, feb1))

	assert.Equal(t, before, s.Items())
}

func TestUpdateReplacesInPlace(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStore(t, WithNotifier(sink))
	a := model.NewTask("a", jan1)
	b := model.NewTask("b", jan1)
	c := model.NewTask("c", jan1)
	s.Add(a)
	s.Add(b)
	s.Add(c)

	edited := b.Clone()
	edited.Title = "b2"
	edited.Task.Priority = model.PriorityHigh
	require.True(t, s.Update(edited))

	items := s.Items()
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, ids(items))
	assert.Equal(t, "b2", items[1].Title)
	assert.Equal(t, model.PriorityHigh, items[1].Task.Priority)
	require.Len(t, sink.got, 4)
	assert.Equal(t, "b2", sink.got[3].Title)
}

func TestStoredItemsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	x := model.NewTask("x", jan1, model.WithDeadline(jan5, nil))
	s.Add(x)

	*x.Task.DeadlineDate = feb1
	got, ok := s.Get(x.ID)
	require.True(t, ok)
	assert.Equal(t, jan5, *got.Task.DeadlineDate)

	got.Task.Completed = true
	again, _ := s.Get(x.ID)
	assert.False(t, again.Task.Completed)
}

func TestToggleComplete(t *testing.T) {
	s := newTestStore(t)
	task := model.NewTask("task", jan1)
	ev := model.NewAllDayEvent("event", jan1)
	s.Add(task)
	s.Add(ev)

	require.True(t, s.ToggleComplete(task.ID))
	got, _ := s.Get(task.ID)
	assert.True(t, got.Task.Completed)

	require.True(t, s.ToggleComplete(task.ID))
	got, _ = s.Get(task.ID)
	assert.False(t, got.Task.Completed)

	before := s.Items()
	assert.False(t, s.ToggleComplete(ev.ID))
	assert.Equal(t, before, s.Items())
}

func TestMoveItems(t *testing.T) {
	s := newTestStore(t)
	taskTime := model.NewTimeOfDay(9, 30, 0)
	task := model.NewTask("task", jan1, model.WithTaskTime(taskTime), model.WithDeadline(jan5, nil))
	ev := model.NewEvent("event", jan1, model.NewTimeOfDay(13, 0, 0), model.NewTimeOfDay(14, 0, 0))
	s.Add(task)
	s.Add(ev)

	moved := s.MoveItems([]uuid.UUID{task.ID, uuid.New(), ev.ID}, feb1)
	assert.Equal(t, 2, moved)

	gotTask, _ := s.Get(task.ID)
	assert.Equal(t, jan1, gotTask.Date)
	assert.Equal(t, feb1, *gotTask.Task.DeadlineDate)
	assert.Equal(t, taskTime, *gotTask.Task.TaskTime)

	gotEv, _ := s.Get(ev.ID)
	assert.Equal(t, feb1, gotEv.Date)
	assert.Equal(t, model.NewTimeOfDay(13, 0, 0), gotEv.Event.Start)
	assert.Equal(t, model.NewTimeOfDay(14, 0, 0), gotEv.Event.End)
}

func TestMoveTaskWithoutDeadlineGainsOne(t *testing.T) {
	s := newTestStore(t)
	task := model.NewTask("task", jan1)
	s.Add(task)

	s.MoveItems([]uuid.UUID{task.ID}, feb1)

	got, _ := s.Get(task.ID)
	require.NotNil(t, got.Task.DeadlineDate)
	assert.Equal(t, feb1, *got.Task.DeadlineDate)
	assert.Equal(t, jan1, got.Date)
}

func TestReminderDescriptions(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStore(t, WithNotifier(sink))

	s.Add(model.NewAllDayEvent("Launch", jan1))
	s.Add(model.NewEvent("Sync", jan1, model.NewTimeOfDay(10, 0, 0), model.NewTimeOfDay(11, 0, 0)))
	s.Add(model.NewTask("Report", jan1, model.WithDeadline(jan5, nil)))
	s.Add(model.NewTask("Someday", jan1))

	want := []string{"All Day", "10:00", "Deadline: 2024-01-05", "Deadline: none"}
	got := make([]string, 0, len(sink.got))
	for _, r := range sink.got {
		got = append(got, r.When)
		assert.Equal(t, jan1, r.Date)
	}
	assert.Equal(t, want, got)
}

func TestReminderFailureDoesNotRollBack(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	s := newTestStore(t, WithNotifier(sink))
	x := model.NewTask("x", jan1)

	s.Add(x)
	_, ok := s.Get(x.ID)
	assert.True(t, ok)

	panicky := NotifierFunc(func(Reminder) error { panic("boom") })
	s2 := newTestStore(t, WithNotifier(panicky))
	assert.NotPanics(t, func() { s2.Add(x) })
	assert.Equal(t, 1, s2.Len())
}

func TestRemoveOnlyTargets(t *testing.T) {
	s := newTestStore(t)
	a := model.NewTask("a", jan1)
	b := model.NewTask("b", jan1)
	s.Add(a)
	s.Add(b)

	require.True(t, s.Remove(a.ID))
	assert.Equal(t, []uuid.UUID{b.ID}, ids(s.Items()))
	assert.False(t, s.Remove(a.ID))
}

func TestSeedSample(t *testing.T) {
	s := newTestStore(t)
	SeedSample(s, jan5)

	require.Equal(t, 4, s.Len())
	agenda := s.ItemsForDate(jan5)
	titles := make([]string, len(agenda))
	for i, it := range agenda {
		titles[i] = it.Title
	}
	assert.Equal(t, []string{"Design Sync", "Update UI Components", "Submit Report"}, titles)
	assert.Len(t, s.ItemsForDate(jan5.AddDays(1)), 1)
	assert.Len(t, s.ItemsForDate(jan5.AddDays(2)), 1)
}

func TestSeedSampleSchedulesNoReminders(t *testing.T) {
	sink := &recordingSink{}
	s := New(WithNotifier(sink), WithLocation(time.UTC))
	SeedSample(s, jan5)

	assert.Equal(t, 4, s.Len())
	assert.Empty(t, sink.got)

	s.Add(model.NewTask("later", jan5))
	assert.Len(t, sink.got, 1)
}
