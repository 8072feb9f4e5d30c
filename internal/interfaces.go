package internal

import (
	"context"
	"time"
)

// ProviderAdapter is the capability set every provider strategy implements,
// whether it speaks the provider's private API or drives a browser
type ProviderAdapter interface {
	// Platform returns the provider this adapter handles
	Platform() Platform

	// ResolveShare exchanges a share id and passcode for a session token
	ResolveShare(ctx context.Context, pwdID, passcode string) (*ShareSession, error)

	// ListContents retrieves the first bounded page of the share's contents
	ListContents(ctx context.Context, session *ShareSession) (*ShareListing, error)

	// CopyToAccount copies the listed files into the destination folder
	CopyToAccount(ctx context.Context, session *ShareSession, files []FileDescriptor, destDirID string) error
}

// LinkStore is the persistent dedup-enforcing work queue
type LinkStore interface {
	// Insert stores records whose (url, origin) key is absent and reports
	// how many were newly stored; existing keys are a silent no-op
	Insert(records []*LinkRecord) (int, error)

	// PullPending returns up to limit pending records, most recent first.
	// An empty platform matches every platform.
	PullPending(limit int, platform Platform) ([]LinkRecord, error)

	// SetStatus updates a single record's status
	SetStatus(id uint, status Status) error

	// CountByStatus returns record counts grouped by status
	CountByStatus() (map[Status]int64, error)

	// CountByPlatform returns record counts grouped by platform
	CountByPlatform() (map[Platform]int64, error)

	// CountSince counts records created within the trailing window
	CountSince(window time.Duration) (int64, error)
}

// Pacer applies backpressure between processed items
type Pacer interface {
	// AfterItem blocks for the pacing delay due after the item at the
	// given zero-based position; it returns early if ctx is cancelled
	AfterItem(ctx context.Context, index int) error
}
