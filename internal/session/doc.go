// Package session implements the interactive segmentation-and-handoff state
// machine. It is structured into small files by concern:
//
//   - session.go: Session type, constructor, lifecycle (Wait, Close).
//   - config.go: Config, collaborator interfaces and defaults.
//   - types.go: State and the Snapshot projection.
//   - errors.go: sentinel errors and helpers.
//   - segment.go: layouts, AddTouch/AddPoint and segmentation completion.
//   - generate.go: Generate and generation completion.
//   - reset.go: Reset.
//   - snapshot.go: Snapshot and CanGenerate.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus instrumentation.
//
// Every network call runs on its own goroutine and carries a per-asset request
// token. Completions are applied under the session mutex only when their token
// is still the newest issued for that asset; anything else is dropped. Reset
// bumps the token, so a late response for a request issued before the reset
// can never become visible.
package session
