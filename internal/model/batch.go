package model

// StreamVariant is one encoding/quality option of an item
type StreamVariant struct {
	FormatID string
	Height   *int // nil when unknown, e.g. audio-only streams
	HasVideo bool
}

// Item is one downloadable unit: a standalone video or one collection member
type Item struct {
	SourceIndex  int    `json:"index,omitempty"` // 1-based enumeration position, 0 if unknown
	ProcessIndex int    `json:"-"`
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail,omitempty"`
	URL          string `json:"url,omitempty"` // explicit direct URL if the source reported one
}

// Metadata is the result of resolving a URL
type Metadata struct {
	IsCollection bool
	Title        string
	ThumbnailURL string
	Entries      []Item
}

// Batch is the filtered, ordered set of items one run attempts
type Batch struct {
	Title        string
	ThumbnailURL string
	Items        []Item
}

// NewBatch builds a batch and assigns contiguous process indices
func NewBatch(title, thumbnail string, items []Item) *Batch {
	b := &Batch{
		Title:        title,
		ThumbnailURL: thumbnail,
		Items:        make([]Item, len(items)),
	}
	for i, it := range items {
		it.ProcessIndex = i + 1
		b.Items[i] = it
	}
	return b
}

// Total returns the number of items in the batch
func (b *Batch) Total() int {
	return len(b.Items)
}

// IsCollection reports whether the batch holds more than one item
func (b *Batch) IsCollection() bool {
	return b.Total() > 1
}

// SequenceNumber returns the number used to prefix file names: the source
// position when known, the process position otherwise
func (it Item) SequenceNumber() int {
	if it.SourceIndex > 0 {
		return it.SourceIndex
	}
	return it.ProcessIndex
}

// DownloadRequest carries the parameters of a start_download command
type DownloadRequest struct {
	URL          string
	OutputFolder string
	Resolution   string
	Indices      []int
}
