// Package engine runs point-in-time backups.
//
// An [Engine] composes traversal, copying, version management and session
// logging into a single [Engine.Run] call. Each run moves through
//
//	Idle -> Preparing -> Copying -> Rotating -> Completed | Failed
//
// and produces exactly one version directory, or none when it fails while
// preparing. Per-file copy failures never fail a run: callers inspect
// [Result.FilesFailed].
//
// At most one run is active per Engine; a second concurrent Run returns
// [ErrRunInProgress] without touching state. Unless disabled with
// [WithoutProcessLock], runs also take a machine-wide lock on the
// destination root so separate processes cannot interleave.
//
// # Parallel copies
//
// With Settings.Workers > 1 files are copied on a bounded pool. Outcomes are
// buffered and handed to the [ProgressReporter] and the session log in
// traversal order, so observers see the same calls as a sequential run.
package engine
