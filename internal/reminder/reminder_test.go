package reminder

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appLog "chronos/internal/log"
	"chronos/internal/model"
	"chronos/internal/schedule"
)

var today = model.NewDate(2024, time.May, 20)

func newStore() *schedule.Store {
	return schedule.New(
		schedule.WithLocation(time.UTC),
		schedule.WithClock(func() time.Time { return today.Time(time.UTC).Add(8 * time.Hour) }),
	)
}

func TestLogSinkWritesReminder(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)

	s := schedule.New(schedule.WithNotifier(LogSink{}))
	s.Add(model.NewAllDayEvent("Project Launch", today))

	assert.Contains(t, buf.String(), "reminder scheduled")
	assert.Contains(t, buf.String(), "Project Launch")
	assert.Contains(t, buf.String(), "All Day")
}

func TestNewDigestRejectsBadSpec(t *testing.T) {
	_, err := NewDigest(newStore(), "every morning")
	assert.Error(t, err)

	_, err = NewDigest(nil, "0 7 * * *")
	assert.Error(t, err)
}

func TestDigestRun(t *testing.T) {
	s := newStore()
	s.Add(model.NewTask("overdue", today.AddDays(-3), model.WithDeadline(today.AddDays(-1), nil)))
	s.Add(model.NewTask("today", today))
	s.Add(model.NewEvent("sync", today, model.NewTimeOfDay(10, 0, 0), model.NewTimeOfDay(11, 0, 0)))

	d, err := NewDigest(s, "0 7 * * *")
	require.NoError(t, err)

	rep := d.Run()
	assert.Equal(t, DigestReport{Agenda: 2, Missed: 1, Remaining: 2}, rep)
	assert.Equal(t, rep, d.Last())
}

func TestDigestStartStops(t *testing.T) {
	d, err := NewDigest(newStore(), "0 7 * * *")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx))
	cancel()
}
