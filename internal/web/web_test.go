package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronos/internal/model"
	"chronos/internal/schedule"
)

var jan5 = model.NewDate(2024, time.January, 5)

func newTestServer(t *testing.T) (*Server, *schedule.Store) {
	t.Helper()
	store := schedule.New(
		schedule.WithLocation(time.UTC),
		schedule.WithClock(func() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }),
	)
	return NewServer(store, "monday"), store
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCreateAndGetTask(t *testing.T) {
	s, store := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/items", `{
		"kind": "task",
		"title": "Submit Report",
		"date": "2024-01-05",
		"task": {"deadline_date": "2024-01-04", "deadline_time": "17:00", "priority": "high"}
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[itemDTO](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Missed)
	require.NotNil(t, created.Task)
	assert.Equal(t, "high", created.Task.Priority)
	assert.Equal(t, 1, store.Len())

	rec = do(t, s, http.MethodGet, "/api/items/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[itemDTO](t, rec)
	assert.Equal(t, created, got)
}

func TestCreateRejectsInvalidItems(t *testing.T) {
	s, store := newTestServer(t)

	cases := map[string]string{
		"empty title":       `{"kind":"task","title":"  ","date":"2024-01-05"}`,
		"unknown kind":      `{"kind":"note","title":"x","date":"2024-01-05"}`,
		"missing date":      `{"kind":"task","title":"x"}`,
		"event no fields":   `{"kind":"event","title":"x","date":"2024-01-05"}`,
		"mixed variants":    `{"kind":"task","title":"x","date":"2024-01-05","event":{"start":"10:00","end":"11:00"}}`,
		"time without date": `{"kind":"task","title":"x","date":"2024-01-05","task":{"deadline_time":"10:00"}}`,
		"bad priority":      `{"kind":"task","title":"x","date":"2024-01-05","task":{"priority":"urgent"}}`,
		"unknown field":     `{"kind":"task","title":"x","date":"2024-01-05","color":"red"}`,
		"malformed":         `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/items", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
	assert.Zero(t, store.Len())
}

func TestAllDayEventNormalizesTimes(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/items",
		`{"kind":"event","title":"Launch","date":"2024-01-06","event":{"all_day":true}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[itemDTO](t, rec)
	require.NotNil(t, got.Event)
	assert.Equal(t, model.Midnight, got.Event.Start)
	assert.Equal(t, model.EndOfDay, got.Event.End)
}

func TestUpdateItem(t *testing.T) {
	s, store := newTestServer(t)
	task := model.NewTask("Draft", jan5)
	store.Add(task)

	rec := do(t, s, http.MethodPut, "/api/items/"+task.ID.String(),
		`{"kind":"task","title":"Draft v2","date":"2024-01-06","task":{"priority":"low"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, ok := store.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Draft v2", got.Title)
	assert.Equal(t, model.PriorityLow, got.Task.Priority)

	rec = do(t, s, http.MethodPut, "/api/items/"+uuid.NewString(),
		`{"kind":"task","title":"ghost","date":"2024-01-06"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, store.Len())
}

func TestDeleteItem(t *testing.T) {
	s, store := newTestServer(t)
	task := model.NewTask("Draft", jan5)
	store.Add(task)

	rec := do(t, s, http.MethodDelete, "/api/items/"+task.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, store.Len())

	rec = do(t, s, http.MethodDelete, "/api/items/"+task.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/items/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleItem(t *testing.T) {
	s, store := newTestServer(t)
	task := model.NewTask("Draft", jan5)
	event := model.NewAllDayEvent("Launch", jan5)
	store.Add(task)
	store.Add(event)

	rec := do(t, s, http.MethodPost, "/api/items/"+task.ID.String()+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[itemDTO](t, rec).Task.Completed)

	rec = do(t, s, http.MethodPost, "/api/items/"+event.ID.String()+"/toggle", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/items/"+uuid.NewString()+"/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoveItems(t *testing.T) {
	s, store := newTestServer(t)
	task := model.NewTask("Draft", jan5)
	event := model.NewAllDayEvent("Launch", jan5)
	store.Add(task)
	store.Add(event)

	rec := do(t, s, http.MethodPost, "/api/items/move", map[string]any{
		"ids":  []string{task.ID.String(), event.ID.String(), uuid.NewString()},
		"date": "2024-01-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[moveResponse](t, rec).Moved)

	jan10 := model.NewDate(2024, time.January, 10)
	gotTask, _ := store.Get(task.ID)
	require.NotNil(t, gotTask.Task.DeadlineDate)
	assert.Equal(t, jan10, *gotTask.Task.DeadlineDate)
	assert.Equal(t, jan5, gotTask.Date)
	gotEvent, _ := store.Get(event.ID)
	assert.Equal(t, jan10, gotEvent.Date)

	rec = do(t, s, http.MethodPost, "/api/items/move", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgendaOrder(t *testing.T) {
	s, store := newTestServer(t)
	schedule.SeedSample(store, jan5)

	rec := do(t, s, http.MethodGet, "/api/agenda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	today := decode[agendaResponse](t, rec)
	assert.Equal(t, jan5, today.Date)

	var titles []string
	for _, it := range today.Items {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"Design Sync", "Update UI Components", "Submit Report"}, titles)

	rec = do(t, s, http.MethodGet, "/api/agenda?date=2024-01-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tomorrow := decode[agendaResponse](t, rec)
	require.Len(t, tomorrow.Items, 1)
	assert.Equal(t, "Project Launch", tomorrow.Items[0].Title)

	rec = do(t, s, http.MethodGet, "/api/agenda?date=01/06/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemsListsVault(t *testing.T) {
	s, store := newTestServer(t)
	schedule.SeedSample(store, jan5)

	rec := do(t, s, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[itemsResponse](t, rec).Items, 4)
}

func TestMonthAndSummary(t *testing.T) {
	s, store := newTestServer(t)
	schedule.SeedSample(store, jan5)
	store.Add(model.NewTask("Old", jan5, model.WithDeadline(model.NewDate(2024, time.January, 2), nil)))

	rec := do(t, s, http.MethodGet, "/api/month?month=2024-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	month := decode[monthResponse](t, rec)
	assert.Equal(t, "2024-01", month.Month)
	assert.Equal(t, "monday", month.WeekStart)
	require.NotEmpty(t, month.Days)

	byDate := make(map[model.Date]dayDTO)
	for _, d := range month.Days {
		byDate[d.Date] = d
	}
	assert.Equal(t, dayDTO{Date: jan5, Count: 4, HasMissed: true}, byDate[jan5])
	assert.Equal(t, dayDTO{Date: jan5.AddDays(1), Count: 1}, byDate[jan5.AddDays(1)])

	rec = do(t, s, http.MethodGet, "/api/month?month=jan", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[summaryResponse](t, rec)
	assert.Equal(t, jan5, sum.Today)
	assert.Equal(t, 3, sum.Remaining)
	assert.Equal(t, 1, sum.Missed)
}

func TestExportICS(t *testing.T) {
	s, store := newTestServer(t)
	schedule.SeedSample(store, jan5)

	rec := do(t, s, http.MethodGet, "/api/export.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "BEGIN:VTODO"))
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPatch, "/api/items", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
