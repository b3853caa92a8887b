package dragsession

import (
	"errors"
	"fmt"

	"chronicle/reorder/internal/document"
)

var ErrUnknownEvent = errors.New("unknown event type")

// EventType names a host event.
type EventType string

const (
	EventPointerMove  EventType = "pointermove"
	EventPointerDown  EventType = "pointerdown"
	EventDragStart    EventType = "dragstart"
	EventDragOver     EventType = "dragover"
	EventDrop         EventType = "drop"
	EventDragEnd      EventType = "dragend"
	EventPointerLeave EventType = "pointerleave"
	EventReset        EventType = "reset"
)

// Event is a recorded host event in editor coordinates.
type Event struct {
	Type EventType `json:"type"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

func (e Event) point() document.Point {
	return document.Point{X: e.X, Y: e.Y}
}

// Dispatch feeds one event to the session. The outcome is non-nil only for
// drop events.
func (s *Session) Dispatch(ev Event) (*Outcome, error) {
	switch ev.Type {
	case EventPointerMove:
		s.PointerMove(ev.point())
	case EventPointerDown:
		s.PointerDown(ev.point())
	case EventDragStart:
		s.DragStart()
	case EventDragOver:
		s.DragOver(ev.point())
	case EventDrop:
		outcome := s.Drop()
		return &outcome, nil
	case EventDragEnd:
		s.DragEnd()
	case EventPointerLeave:
		s.PointerLeave()
	case EventReset:
		s.Reset()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil, nil
}

// Replay dispatches a recorded gesture. A recorded gesture commits at most
// one move: events after the first committed drop are not dispatched, and
// that drop's outcome is returned. Otherwise the last drop's outcome is
// returned, or Reason "no drop" when there was none.
func (s *Session) Replay(events []Event) (Outcome, error) {
	for i, ev := range events {
		if !ev.Type.known() {
			return Outcome{}, fmt.Errorf("event %d: %w: %q", i, ErrUnknownEvent, ev.Type)
		}
	}
	last := Outcome{Reason: "no drop"}
	for i, ev := range events {
		outcome, err := s.Dispatch(ev)
		if err != nil {
			return Outcome{}, fmt.Errorf("event %d: %w", i, err)
		}
		if outcome == nil {
			continue
		}
		last = *outcome
		if last.Committed {
			break
		}
	}
	return last, nil
}

func (t EventType) known() bool {
	switch t {
	case EventPointerMove, EventPointerDown, EventDragStart, EventDragOver,
		EventDrop, EventDragEnd, EventPointerLeave, EventReset:
		return true
	}
	return false
}
