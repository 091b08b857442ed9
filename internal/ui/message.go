package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhiozhou/cloudmatch/internal/auth"
	"github.com/zhiozhou/cloudmatch/internal/match"
)

// loginTickMsg re-checks the auth engine while a challenge is live.
type loginTickMsg struct{}

// catalogFetchedMsg reports a finished page fetch.
type catalogFetchedMsg struct {
	err error
}

// matchDoneMsg reports a finished match attempt.
type matchDoneMsg struct {
	result *match.Result
	err    error
}

// loggedOutMsg reports that the session was torn down and a new login
// challenge is live.
type loggedOutMsg struct {
	err error
}

// loginTick schedules the next auth engine check.
func loginTick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
		return loginTickMsg{}
	})
}

// settled reports whether the login flow needs no further ticks.
func settled(state auth.State) bool {
	switch state {
	case auth.StateSucceeded, auth.StateExpired, auth.StateFailed:
		return true
	}
	return false
}
