// Package scheduler runs one-shot tasks at a given instant.
//
// The scheduler is responsible only for:
//   - sleeping until each task's fire instant (via clock.Clock)
//   - shielding a task from cancellation once it starts running
//   - bulk cancellation of everything still sleeping
//   - recovering task panics and logging task errors
//
// There is no per-task cancel and no persistence: a schedule change
// invalidates the whole plan at once, and a restart starts from scratch.
package scheduler
