// Package merge supervises one external concatenation process at a time.
//
// Controller is a small state machine (idle, running, success, error). Start
// validates the request synchronously, so an empty input list or an existing
// output never spawns a process. Completion, failure and cancellation are
// published under a single mutex, and the per-job cancel token wins over
// whatever exit status the killed process reports. After a successful merge
// the controller can hand the sources to a retention store, reveal the
// output, notify the user and record the job in the history ledger.
package merge
