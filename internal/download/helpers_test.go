package download

import (
	"fmt"
	"sync"

	"github.com/ytget/yt-downloader-web/internal/engine"
	"github.com/ytget/yt-downloader-web/internal/engine/enginetest"
	"github.com/ytget/yt-downloader-web/internal/model"
)

type sentEvent struct {
	sessionID string
	event     model.Event
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingEmitter) Emit(sessionID string, event model.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{sessionID: sessionID, event: event})
	return nil
}

func (r *recordingEmitter) all() []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingEmitter) named(name model.EventName) []model.Event {
	var out []model.Event
	for _, e := range r.all() {
		if e.event.Name() == name {
			out = append(out, e.event)
		}
	}
	return out
}

func (r *recordingEmitter) terminal() []model.Event {
	var out []model.Event
	for _, e := range r.all() {
		if n := e.event.Name(); n == model.EventDone || n == model.EventError {
			out = append(out, e.event)
		}
	}
	return out
}

func (r *recordingEmitter) progress() []model.ProgressEvent {
	var out []model.ProgressEvent
	for _, e := range r.named(model.EventProgress) {
		out = append(out, e.(model.ProgressEvent))
	}
	return out
}

const playlistURL = "https://www.youtube.com/playlist?list=PLtest"

func itemURL(i int) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=vid%d", i)
}

// scriptedPlaylist registers a playlist of n downloadable members
func scriptedPlaylist(fake *enginetest.Fake, n int) {
	entries := make([]*engine.FlatEntry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, &engine.FlatEntry{
			ID:    fmt.Sprintf("vid%d", i),
			Title: fmt.Sprintf("Track %d", i),
			URL:   itemURL(i),
		})
		fake.SetFull(itemURL(i), enginetest.Video(fmt.Sprintf("vid%d", i), fmt.Sprintf("Track %d", i), 360, 720, 1080))
	}
	fake.SetFlat(playlistURL, enginetest.Playlist("Mix", entries...))
}
