package models

import (
	"encoding/json"
	"fmt"
)

// EventKind is the event name pushed to websocket clients.
type EventKind string

const (
	EventProgress    EventKind = "unzip_progress"
	EventComplete    EventKind = "unzip_complete"
	EventError       EventKind = "unzip_error"
	EventTreeChanged EventKind = "tree_changed"
)

// ProgressEvent is one message of an extraction job's event stream:
// a progress percentage, the completion signal, or an error.
type ProgressEvent struct {
	Kind    EventKind
	Percent float64 // only for EventProgress, 0-100
	Message string  // only for EventError
}

func ProgressAt(percent float64) ProgressEvent {
	return ProgressEvent{Kind: EventProgress, Percent: percent}
}

func Completed() ProgressEvent {
	return ProgressEvent{Kind: EventComplete}
}

func Failed(message string) ProgressEvent {
	return ProgressEvent{Kind: EventError, Message: message}
}

// Terminal reports whether no further events may follow this one.
func (e ProgressEvent) Terminal() bool {
	return e.Kind == EventComplete || e.Kind == EventError
}

// wireEvent is the JSON envelope sent over the websocket.
type wireEvent struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the event as {"event": name, "data": {...}}.
func (e ProgressEvent) MarshalJSON() ([]byte, error) {
	var data any
	switch e.Kind {
	case EventProgress:
		data = map[string]float64{"progress": e.Percent}
	case EventError:
		data = map[string]string{"error": e.Message}
	case EventComplete:
	default:
		return nil, fmt.Errorf("unknown progress event kind %q", e.Kind)
	}

	w := wireEvent{Event: e.Kind}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		w.Data = raw
	}
	return json.Marshal(w)
}

func (e *ProgressEvent) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = ProgressEvent{Kind: w.Event}
	switch w.Event {
	case EventProgress:
		var d struct {
			Progress float64 `json:"progress"`
		}
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return err
		}
		e.Percent = d.Progress
	case EventError:
		var d struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(w.Data, &d); err != nil {
			return err
		}
		e.Message = d.Error
	case EventComplete:
	default:
		return fmt.Errorf("unknown progress event kind %q", w.Event)
	}
	return nil
}

// TreeChange tells every connected browser that a directory's contents
// changed on disk.
type TreeChange struct {
	Path string
}

func (c TreeChange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Event EventKind         `json:"event"`
		Data  map[string]string `json:"data"`
	}{
		Event: EventTreeChanged,
		Data:  map[string]string{"path": c.Path},
	})
}
