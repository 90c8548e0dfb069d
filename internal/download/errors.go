package download

import (
	"errors"
	"fmt"

	"github.com/ytget/yt-downloader-web/internal/model"
)

// Client-facing messages
const (
	connectionErrorPrefix = "Connection error: "
	exhaustedMessage      = "No items could be downloaded."
)

// ErrEmptyURL is returned when a request carries no URL
var ErrEmptyURL = errors.New("url is required")

// ErrDuplicateBatch is returned when the session already runs a batch for the URL
var ErrDuplicateBatch = errors.New("batch already running for URL")

// ResolutionError means the URL could not be resolved at all
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ClientMessage is the text sent to the session
func (e *ResolutionError) ClientMessage() string {
	return connectionErrorPrefix + e.Err.Error()
}

// ItemUnreachableError means no direct URL could be derived for an item
type ItemUnreachableError struct {
	ProcessIndex int
	Title        string
}

func (e *ItemUnreachableError) Error() string {
	return fmt.Sprintf("item %d (%q) has no fetchable URL", e.ProcessIndex, e.Title)
}

// ItemDownloadError wraps an engine failure for one item
type ItemDownloadError struct {
	ProcessIndex int
	Title        string
	Phase        model.ItemStatus
	Err          error
}

func (e *ItemDownloadError) Error() string {
	return fmt.Sprintf("item %d (%q) failed while %s: %v", e.ProcessIndex, e.Title, e.Phase, e.Err)
}

func (e *ItemDownloadError) Unwrap() error {
	return e.Err
}

// BatchExhaustedError means the loop finished without a single success
type BatchExhaustedError struct {
	Total   int
	Failed  int
	Skipped int
}

func (e *BatchExhaustedError) Error() string {
	return fmt.Sprintf("no items downloaded: %d failed, %d skipped of %d", e.Failed, e.Skipped, e.Total)
}

// ClientMessage is the text sent to the session
func (e *BatchExhaustedError) ClientMessage() string {
	return exhaustedMessage
}
