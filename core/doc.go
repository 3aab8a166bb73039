// Package core provides the foundational domain types shared by the MCP host:
//
//   - Message (the single tagged conversation unit: role, content, optional
//     display metadata)
//   - Role constants and validation
//   - Display metadata for raw tool-result grouping in UI layers
//
// The package intentionally keeps implementation concerns (transports, model
// backends, orchestration) out of scope so every other package can depend on
// it without cycles. A conversation is simply an ordered []Message owned by
// the caller; the host and engine only ever return addenda to it.
package core
