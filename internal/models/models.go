package models

import (
	"time"
)

// Identity is the durable record of an authenticated user.
// Owned by the session store and always replaced as a whole record;
// no field is ever updated in place.
type Identity struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarURL,omitempty"`
	Token     string    `json:"token"`
	LoginTime time.Time `json:"loginTime"`
}

// Song represents one entry of the user's cloud-drive catalog.
//
// ID is deliberately mutable: a successful match replaces it with the
// adjusted catalog identity returned by the server.
type Song struct {
	ID       string
	Name     string
	Artist   string
	Album    string
	FileName string
	FileSize int64
	Bitrate  int
	AddTime  time.Time
	PicURL   string
	Duration int // milliseconds
	MatchID  string
}

// LogStatus classifies an activity log line.
type LogStatus int

const (
	LogSuccess LogStatus = iota
	LogError
	LogInfo
)

// String returns a short label for table and TUI rendering.
func (s LogStatus) String() string {
	switch s {
	case LogSuccess:
		return "success"
	case LogError:
		return "error"
	default:
		return "info"
	}
}

// LogEntry is one line of the match activity log. The log is append-only;
// insertion order is chronological and entries are never edited.
type LogEntry struct {
	ID        string
	SongName  string
	SongID    string
	MatchID   string
	Message   string
	Status    LogStatus
	Timestamp time.Time
}
