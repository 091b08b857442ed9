// Package models defines the domain entities shared by the cloudmatch engines.
//
// The package contains plain data types only:
//   - [Song] : a cloud-drive catalog entry whose ID is rewritten by a successful match
//   - [Identity] : the authenticated user record persisted by the session store
//   - [LogEntry] : one line of the append-only match activity log
//
// Parsing of remote payloads into these types lives in internal/netease; the
// engines in internal/auth, internal/catalog and internal/match own all mutation.
package models
