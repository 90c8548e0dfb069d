package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewEnvelope_RejectsInvalidEvents(t *testing.T) {
	over := 120.0
	tests := []struct {
		name  string
		event Event
	}{
		{"metadata mismatch", MetadataEvent{Total: 1, IsCollection: true}},
		{"unknown phase", ProgressEvent{Phase: "paused"}},
		{"percent above 100", ProgressEvent{Phase: PhaseDownloading, Percent: 101}},
		{"batch percent above 100", ProgressEvent{Phase: PhaseDownloading, BatchPercent: &over}},
		{"processing with speed", ProgressEvent{Phase: PhaseProcessing, Percent: 100, Speed: "1.0 MB/s"}},
		{"done without success", DoneEvent{Message: "x", Succeeded: 0, Total: 2}},
		{"empty error", ErrorEvent{}},
		{"empty rejection", RejectedEvent{Command: "cancel"}},
		{"empty result", MetadataResultEvent{}},
		{"empty session", SessionEvent{}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEnvelope(tt.event); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestEnvelope_WireFormat(t *testing.T) {
	half := 75.0
	env, err := NewEnvelope(ProgressEvent{
		Phase:        PhaseDownloading,
		Title:        "Clip",
		Percent:      50,
		Speed:        "1.0 MB/s",
		ETA:          "00:10",
		IsCollection: true,
		ProcessIndex: 2,
		Total:        2,
		BatchPercent: &half,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Event != "progress" {
		t.Errorf("expected event progress, got %s", decoded.Event)
	}
	if decoded.Data["batchPercent"] != 75.0 {
		t.Errorf("expected batchPercent 75, got %v", decoded.Data["batchPercent"])
	}
	if decoded.Data["processIndex"] != 2.0 {
		t.Errorf("expected processIndex 2, got %v", decoded.Data["processIndex"])
	}
	if _, ok := decoded.Data["sourceIndex"]; ok {
		t.Error("sourceIndex should be omitted when unknown")
	}
}

func TestNewDoneEvent(t *testing.T) {
	e := NewDoneEvent(2, 3)
	if !strings.Contains(e.Message, "2/3") {
		t.Errorf("expected message to contain 2/3, got %q", e.Message)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestNewMetadataResult(t *testing.T) {
	playlist := NewMetadataResult(&Metadata{IsCollection: true, Title: "P", Entries: []Item{{SourceIndex: 1}}})
	if playlist.Type != ResultTypePlaylist {
		t.Errorf("expected playlist type, got %s", playlist.Type)
	}

	video := NewMetadataResult(&Metadata{Title: "V"})
	if video.Type != ResultTypeVideo {
		t.Errorf("expected video type, got %s", video.Type)
	}

	failed := NewMetadataResultError(errors.New("boom"))
	if failed.Error != "boom" || failed.Validate() != nil {
		t.Errorf("unexpected error result: %+v", failed)
	}
}
