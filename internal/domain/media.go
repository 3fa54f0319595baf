package domain

import (
	"time"
)

// MediaKind selects audio or video for a single identifier.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// ParseKind parses a user-supplied kind string. An empty string defaults
// to audio to match the download endpoint contract.
func ParseKind(s string) (MediaKind, error) {
	switch s {
	case "", string(KindAudio):
		return KindAudio, nil
	case string(KindVideo):
		return KindVideo, nil
	default:
		return "", ErrInvalidInput
	}
}

// String returns the string representation of the kind.
func (k MediaKind) String() string {
	return string(k)
}

// Ext returns the canonical on-disk extension for the kind.
func (k MediaKind) Ext() string {
	if k == KindVideo {
		return "mp4"
	}
	return "mp3"
}

// ContentType returns the MIME type served for the kind.
func (k MediaKind) ContentType() string {
	if k == KindVideo {
		return "video/mp4"
	}
	return "audio/mpeg"
}

// MediaRequest names one piece of remote media and the desired kind.
// Identifier is a normalized opaque token, never a full URL.
type MediaRequest struct {
	Identifier string
	Kind       MediaKind
}

// Filename returns the canonical cache filename for the request.
func (r MediaRequest) Filename() string {
	return r.Identifier + "." + r.Kind.Ext()
}

// FetchStatus is the terminal state of a fetch attempt.
type FetchStatus string

const (
	FetchCompleted FetchStatus = "completed"
	FetchFailed    FetchStatus = "failed"
)

// FetchRecord is one row in the fetch history store.
type FetchRecord struct {
	ID         string
	Identifier string
	Kind       MediaKind
	Status     FetchStatus
	CacheHit   bool
	Error      string
	DurationMS int64
	CreatedAt  time.Time
}
