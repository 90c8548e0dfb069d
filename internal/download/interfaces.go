package download

import (
	"github.com/ytget/yt-downloader-web/internal/model"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	// ResolveMetadata resolves url in the background and answers the session
	// with a metadata_result event.
	ResolveMetadata(sessionID, url string)

	// StartDownload launches a batch for the session.
	StartDownload(sessionID string, req model.DownloadRequest) (*model.BatchTask, error)

	// CancelSession stops every running batch of the session and returns how
	// many were cancelled.
	CancelSession(sessionID string) int

	GetTask(id string) (*model.BatchTask, bool)
	SessionTasks(sessionID string) []*model.BatchTask
}

var _ Downloader = (*Service)(nil)
