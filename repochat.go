// Package repochat provides a local, CLI-based chat and search front-end
// over a remote code-indexing API. Registered repositories are indexed
// remotely; conversations, search history, and preferences are stored in
// a local SQLite database.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency or concern (e.g., sqlite/, http/, pool/).
package repochat
