package model

import "time"

type LogoStatus string

const (
	LogoGenerating LogoStatus = "generating"
	LogoSuccess    LogoStatus = "success"
	LogoFailed     LogoStatus = "failed"
)

// Logo is one generation attempt owned by a user.
//
// LIFECYCLE:
//
//	generating -> success | failed
//	failed     -> generating (regenerate)
//
// ImageURL is only meaningful when Status is success. ImagePath is fixed at
// creation and reused by every retry, so a regenerated logo overwrites its
// previous objects in storage.
type Logo struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	UserEmail   string     `json:"user_email"`
	Description string     `json:"img_description"`
	Model       string     `json:"llm_name"`
	Size        string     `json:"img_size"`
	Quality     string     `json:"img_quality"`
	Style       string     `json:"img_style"`
	ImagePath   string     `json:"img_path"`
	ImageURL    string     `json:"img_url"`
	Status      LogoStatus `json:"status"`

	// Snapshot of the creator, copied at creation time.
	CreatorNickname  string `json:"created_user_nickname"`
	CreatorAvatarURL string `json:"created_user_avatar_url"`

	CreatedAt time.Time `json:"created_at"`
	// StartedAt is reset on every (re)generation attempt; staleness is
	// measured from it.
	StartedAt time.Time `json:"started_at"`

	// Version increments on every status write and guards concurrent
	// finalization.
	Version int64 `json:"-"`
}

// Downloadable reports whether the image can be offered to the user.
func (l *Logo) Downloadable() bool {
	return l.Status == LogoSuccess && l.ImageURL != ""
}

// Stale reports whether a generating logo has outlived the timeout.
func (l *Logo) Stale(now time.Time, timeout time.Duration) bool {
	return l.Status == LogoGenerating && now.Sub(l.StartedAt) > timeout
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// PublicLogo is the gallery snapshot of a logo at the moment it was published.
type PublicLogo struct {
	Logo
	PublishedAt time.Time `json:"published_at"`
}
