// Package netease implements the HTTP transport for the NetEase Cloud Music
// /api endpoints.
//
// [Client] is a generic request/response primitive: GET and form-encoded POST
// with session cookie injection and client-side rate limiting. It knows nothing
// about business payloads.
//
// The typed adapters in endpoints.go centralize every remote schema assumption:
// one adapter per endpoint, each performing a strict decode into a typed result
// or returning a decode error. Business codes (200, 301, 800, 801, 803) are
// passed through to the engines, which own the reactions to them.
package netease
