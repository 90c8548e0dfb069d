package model

import (
	"errors"
	"fmt"
)

// EventName identifies the kind of an outbound session event
type EventName string

const (
	EventSession        EventName = "session"
	EventMetadata       EventName = "metadata"
	EventMetadataResult EventName = "metadata_result"
	EventProgress       EventName = "progress"
	EventDone           EventName = "done"
	EventError          EventName = "error"
	EventRejected       EventName = "rejected"
)

// Event is implemented by every payload that can be sent to a session
type Event interface {
	Name() EventName
	Validate() error
}

// Envelope is the wire form of an event
type Envelope struct {
	Event EventName `json:"event"`
	Data  Event     `json:"data"`
}

// NewEnvelope validates the event and wraps it for sending
func NewEnvelope(e Event) (Envelope, error) {
	if e == nil {
		return Envelope{}, errors.New("nil event")
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("invalid %s event: %w", e.Name(), err)
	}
	return Envelope{Event: e.Name(), Data: e}, nil
}

// Phase of an item as reported in progress events
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseProcessing  Phase = "processing"
)

// SessionEvent tells a freshly connected client its session id
type SessionEvent struct {
	ID string `json:"id"`
}

func (SessionEvent) Name() EventName { return EventSession }

func (e SessionEvent) Validate() error {
	if e.ID == "" {
		return errors.New("empty session id")
	}
	return nil
}

// MetadataEvent is sent once per run, after the item set is filtered
type MetadataEvent struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	IsCollection bool   `json:"isCollection"`
	Total        int    `json:"total"`
}

// NewMetadataEvent describes a filtered batch
func NewMetadataEvent(b *Batch) MetadataEvent {
	return MetadataEvent{
		Title:        b.Title,
		ThumbnailURL: b.ThumbnailURL,
		IsCollection: b.IsCollection(),
		Total:        b.Total(),
	}
}

func (MetadataEvent) Name() EventName { return EventMetadata }

func (e MetadataEvent) Validate() error {
	if e.Total < 0 {
		return fmt.Errorf("negative total %d", e.Total)
	}
	if e.IsCollection != (e.Total > 1) {
		return fmt.Errorf("isCollection=%v does not match total %d", e.IsCollection, e.Total)
	}
	return nil
}

// ProgressEvent reports the state of the item currently downloading
type ProgressEvent struct {
	Phase        Phase    `json:"phase"`
	Title        string   `json:"title"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Percent      float64  `json:"percent"`
	Speed        string   `json:"speed,omitempty"`
	ETA          string   `json:"eta,omitempty"`
	IsCollection bool     `json:"isCollection"`
	ProcessIndex int      `json:"processIndex"`
	SourceIndex  int      `json:"sourceIndex,omitempty"`
	Total        int      `json:"total"`
	BatchPercent *float64 `json:"batchPercent,omitempty"`
}

func (ProgressEvent) Name() EventName { return EventProgress }

func (e ProgressEvent) Validate() error {
	switch e.Phase {
	case PhaseDownloading:
	case PhaseProcessing:
		if e.Speed != "" || e.ETA != "" {
			return errors.New("processing phase carries no speed or eta")
		}
	default:
		return fmt.Errorf("unknown phase %q", e.Phase)
	}
	if e.Percent < 0 || e.Percent > 100 {
		return fmt.Errorf("percent %v out of range", e.Percent)
	}
	if e.BatchPercent != nil && (*e.BatchPercent < 0 || *e.BatchPercent > 100) {
		return fmt.Errorf("batch percent %v out of range", *e.BatchPercent)
	}
	if e.ProcessIndex < 0 || e.Total < 0 {
		return errors.New("negative index or total")
	}
	return nil
}

// DoneEvent closes a run that downloaded at least one item
type DoneEvent struct {
	Message   string `json:"message"`
	Succeeded int    `json:"succeeded"`
	Total     int    `json:"total"`
}

// NewDoneEvent builds the completion summary
func NewDoneEvent(succeeded, total int) DoneEvent {
	return DoneEvent{
		Message:   fmt.Sprintf("Completed. %d/%d items downloaded.", succeeded, total),
		Succeeded: succeeded,
		Total:     total,
	}
}

func (DoneEvent) Name() EventName { return EventDone }

func (e DoneEvent) Validate() error {
	if e.Succeeded <= 0 || e.Succeeded > e.Total {
		return fmt.Errorf("succeeded %d of %d", e.Succeeded, e.Total)
	}
	if e.Message == "" {
		return errors.New("empty message")
	}
	return nil
}

// ErrorEvent closes a run that failed as a whole
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) Name() EventName { return EventError }

func (e ErrorEvent) Validate() error {
	if e.Message == "" {
		return errors.New("empty message")
	}
	return nil
}

// RejectedEvent answers an inbound command that was not accepted. It never
// ends a running batch.
type RejectedEvent struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

func (RejectedEvent) Name() EventName { return EventRejected }

func (e RejectedEvent) Validate() error {
	if e.Message == "" {
		return errors.New("empty message")
	}
	return nil
}

// Metadata result kinds
const (
	ResultTypePlaylist = "playlist"
	ResultTypeVideo    = "video"
)

// MetadataResultEvent answers a fetch_metadata command
type MetadataResultEvent struct {
	Type         string `json:"type,omitempty"`
	Title        string `json:"title,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Entries      []Item `json:"entries,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewMetadataResult converts resolver output into a metadata_result payload
func NewMetadataResult(m *Metadata) MetadataResultEvent {
	kind := ResultTypeVideo
	if m.IsCollection {
		kind = ResultTypePlaylist
	}
	return MetadataResultEvent{
		Type:         kind,
		Title:        m.Title,
		ThumbnailURL: m.ThumbnailURL,
		Entries:      m.Entries,
	}
}

// NewMetadataResultError reports a failed resolution
func NewMetadataResultError(err error) MetadataResultEvent {
	return MetadataResultEvent{Error: err.Error()}
}

func (MetadataResultEvent) Name() EventName { return EventMetadataResult }

func (e MetadataResultEvent) Validate() error {
	if e.Error == "" && e.Type == "" {
		return errors.New("result has neither type nor error")
	}
	return nil
}
