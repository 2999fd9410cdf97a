// Package models contains the shared domain types: platforms, tracks,
// library snapshots, match records, and playlist payloads.
//
// The types are deliberately plain data. Behavior lives in the session,
// match, and convert packages; collaborator adapters in auth and library
// translate platform wire formats into these types at the boundary.
package models
