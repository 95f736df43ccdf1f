// Package chatwork is a thin client for the Chatwork REST API (v2).
//
// All calls go through a single retrying executor which:
//
//   - sends an authenticated request built fresh for every attempt
//   - retries HTTP 429 responses with pure exponential backoff (no jitter)
//   - treats transport failures, decode failures and every other non-2xx
//     status as terminal for the call
//
// Only the three endpoints the sweeper needs are exposed: listing rooms,
// listing a room's messages and moving a room's read pointer.
//
// No external Chatwork library is used; the client talks to the API via raw
// net/http + encoding/json.
package chatwork
