// Package logs reads back the JSON log file written by internal/logging.
//
// Last returns the final matching records with bounded memory, and Follow
// polls for records appended afterwards, restarting from the top when the
// file shrinks. A Filter narrows either by minimum level or by merge job id.
// `stitch logs` is the only caller.
package logs
