// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for cloud song matching:
//  1. [LoginView] : Scan the QR challenge or wait for a restored session
//  2. [SongListView] : Browse the cloud locker with quota and pagination
//  3. [MatchView] : Enter the target track id for the selected song
//  4. [LogView] : Review the activity log of past match attempts
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Login progress is observed by ticking against the auth engine rather than by
// callbacks, so the engine stays free of UI concerns.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
