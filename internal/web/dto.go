package web

import (
	"fmt"

	"github.com/google/uuid"

	"chronos/internal/model"
)

// itemDTO is the JSON shape of a TimelineItem. Exactly one of Task/Event is
// set, matching Kind. ID and Missed are ignored on input.
type itemDTO struct {
	ID      string     `json:"id,omitempty"`
	Kind    model.Kind `json:"kind"`
	Title   string     `json:"title"`
	Details string     `json:"details"`
	Date    model.Date `json:"date"`
	Missed  bool       `json:"missed"`

	Task  *taskDTO  `json:"task,omitempty"`
	Event *eventDTO `json:"event,omitempty"`
}

type taskDTO struct {
	TaskTime     *model.TimeOfDay `json:"task_time,omitempty"`
	DeadlineDate *model.Date      `json:"deadline_date,omitempty"`
	DeadlineTime *model.TimeOfDay `json:"deadline_time,omitempty"`
	Completed    bool             `json:"completed"`
	Priority     string           `json:"priority"`
}

type eventDTO struct {
	Start    model.TimeOfDay `json:"start"`
	End      model.TimeOfDay `json:"end"`
	AllDay   bool            `json:"all_day"`
	Location string          `json:"location,omitempty"`
}

type itemsResponse struct {
	Items []itemDTO `json:"items"`
}

type agendaResponse struct {
	Date  model.Date `json:"date"`
	Items []itemDTO  `json:"items"`
}

type moveResponse struct {
	Moved int `json:"moved"`
}

type dayDTO struct {
	Date      model.Date `json:"date"`
	Count     int        `json:"count"`
	HasMissed bool       `json:"has_missed"`
}

type monthResponse struct {
	Month     string   `json:"month"`
	WeekStart string   `json:"week_start"`
	Days      []dayDTO `json:"days"`
}

type summaryResponse struct {
	Today     model.Date `json:"today"`
	Remaining int        `json:"remaining"`
	Missed    int        `json:"missed"`
}

func (s *Server) toDTOs(items []model.TimelineItem) []itemDTO {
	today := s.store.Today()
	out := make([]itemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, s.toDTO(it, today))
	}
	return out
}

func (s *Server) toDTO(it model.TimelineItem, today model.Date) itemDTO {
	dto := itemDTO{
		ID:      it.ID.String(),
		Kind:    it.Kind,
		Title:   it.Title,
		Details: it.Details,
		Date:    it.Date,
		Missed:  it.IsMissed(today),
	}
	switch it.Kind {
	case model.KindTask:
		if it.Task != nil {
			dto.Task = &taskDTO{
				TaskTime:     it.Task.TaskTime,
				DeadlineDate: it.Task.DeadlineDate,
				DeadlineTime: it.Task.DeadlineTime,
				Completed:    it.Task.Completed,
				Priority:     string(it.Task.Priority),
			}
		}
	case model.KindEvent:
		if it.Event != nil {
			dto.Event = &eventDTO{
				Start:    it.Event.Start,
				End:      it.Event.End,
				AllDay:   it.Event.AllDay,
				Location: it.Event.Location,
			}
		}
	}
	return dto
}

// toItem builds and validates an item carrying id.
func (in itemDTO) toItem(id uuid.UUID) (model.TimelineItem, error) {
	it := model.TimelineItem{
		ID:      id,
		Kind:    in.Kind,
		Title:   in.Title,
		Details: in.Details,
		Date:    in.Date,
	}
	switch in.Kind {
	case model.KindTask:
		if in.Event != nil {
			return it, fmt.Errorf("%w: task must not carry event fields", model.ErrInvalidKind)
		}
		tf := model.TaskFields{Priority: model.PriorityMedium}
		if in.Task != nil {
			p, err := model.ParsePriority(in.Task.Priority)
			if err != nil {
				return it, err
			}
			tf = model.TaskFields{
				TaskTime:     in.Task.TaskTime,
				DeadlineDate: in.Task.DeadlineDate,
				DeadlineTime: in.Task.DeadlineTime,
				Completed:    in.Task.Completed,
				Priority:     p,
			}
		}
		it.Task = &tf
	case model.KindEvent:
		if in.Task != nil {
			return it, fmt.Errorf("%w: event must not carry task fields", model.ErrInvalidKind)
		}
		if in.Event == nil {
			return it, fmt.Errorf("%w: event fields are required", model.ErrInvalidKind)
		}
		ef := model.EventFields{
			Start:    in.Event.Start,
			End:      in.Event.End,
			AllDay:   in.Event.AllDay,
			Location: in.Event.Location,
		}
		if ef.AllDay {
			ef.Start, ef.End = model.Midnight, model.EndOfDay
		}
		it.Event = &ef
	}
	if err := it.Validate(); err != nil {
		return it, err
	}
	return it, nil
}
