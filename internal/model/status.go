package model

// BatchStatus represents the lifecycle state of one orchestration run
type BatchStatus string

const (
	// BatchStatusResolving means metadata for the URL is being fetched
	BatchStatusResolving BatchStatus = "resolving"

	// BatchStatusIterating means items are being downloaded one after another
	BatchStatusIterating BatchStatus = "iterating"

	// BatchStatusDone means at least one item was downloaded
	BatchStatusDone BatchStatus = "done"

	// BatchStatusAllFailed means the loop finished without a single success
	BatchStatusAllFailed BatchStatus = "all_failed"

	// BatchStatusFailed means the URL could not be resolved at all
	BatchStatusFailed BatchStatus = "failed"

	// BatchStatusCancelled means the session went away before the loop finished
	BatchStatusCancelled BatchStatus = "cancelled"
)

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// IsActive returns true while the batch is still doing work
func (s BatchStatus) IsActive() bool {
	return s == BatchStatusResolving || s == BatchStatusIterating
}

// IsFinished returns true for terminal states
func (s BatchStatus) IsFinished() bool {
	switch s {
	case BatchStatusDone, BatchStatusAllFailed, BatchStatusFailed, BatchStatusCancelled:
		return true
	}
	return false
}

// ItemStatus represents the state of a single item inside a batch
type ItemStatus string

const (
	ItemStatusFetchingVariants ItemStatus = "fetching_variants"
	ItemStatusDownloading      ItemStatus = "downloading"
	ItemStatusOK               ItemStatus = "ok"
	ItemStatusFailed           ItemStatus = "failed"
	// Skipped is used for items without a fetchable URL; they are not counted as attempts
	ItemStatusSkipped ItemStatus = "skipped"
)
