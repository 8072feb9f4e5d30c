package internal

import (
	"time"
)

// Platform identifies a supported netdisk provider
type Platform string

const (
	PlatformQuark  Platform = "quark"
	PlatformBaidu  Platform = "baidu"
	PlatformAliyun Platform = "aliyun"
	PlatformTianyi Platform = "tianyi"
	PlatformPan123 Platform = "pan123"
)

// String returns the platform tag
func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether the platform is one of the supported providers
func (p Platform) IsValid() bool {
	switch p {
	case PlatformQuark, PlatformBaidu, PlatformAliyun, PlatformTianyi, PlatformPan123:
		return true
	default:
		return false
	}
}

// AllPlatforms returns every supported platform
func AllPlatforms() []Platform {
	return []Platform{
		PlatformQuark,
		PlatformBaidu,
		PlatformAliyun,
		PlatformTianyi,
		PlatformPan123,
	}
}

// Status is the lifecycle state of a queued link record
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LinkRecord is a harvested share link queued for transfer.
// The (url, origin) pair is the natural key; duplicates are ignored at insert.
type LinkRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Platform    Platform  `gorm:"size:16;not null;index" json:"platform"`
	URL         string    `gorm:"size:512;not null;uniqueIndex:idx_url_origin" json:"url"`
	Password    string    `gorm:"size:16;default:''" json:"password,omitempty"`
	Title       string    `gorm:"size:128;default:''" json:"title"`
	SizeHint    string    `gorm:"size:32;default:''" json:"size_hint,omitempty"`
	Origin      string    `gorm:"size:256;not null;uniqueIndex:idx_url_origin" json:"origin"`
	ExtractedAt time.Time `json:"extracted_at"`
	Status      Status    `gorm:"size:16;not null;default:pending;index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName keeps the table name the original harvester tooling used
func (LinkRecord) TableName() string {
	return "netdisk_links"
}

// ShareSession holds the short-lived credentials for one transfer attempt.
// Never persisted; a fresh session is resolved per queued link.
type ShareSession struct {
	PwdID    string
	Passcode string
	Stoken   string
}

// FileDescriptor is a single listed entry of a share, carrying the
// file-scoped token required to authorize a copy
type FileDescriptor struct {
	FID           string `json:"fid"`
	ShareFidToken string `json:"share_fid_token"`
	Filename      string `json:"file_name"`
	Size          int64  `json:"size"`
	IsDir         bool   `json:"dir"`
}

// ShareListing is one bounded page of a share's contents
type ShareListing struct {
	Title string
	Files []FileDescriptor
}

// TransferTally is the run-level outcome summary of one orchestrator batch
type TransferTally struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Elapsed   time.Duration `json:"elapsed"`
}

// AuditEntry is one per-item line of the append-only transfer audit log
type AuditEntry struct {
	RunID     string    `json:"run_id"`
	LinkID    uint      `json:"link_id"`
	Platform  Platform  `json:"platform"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Outcome   string    `json:"outcome"` // completed, failed, skipped
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
