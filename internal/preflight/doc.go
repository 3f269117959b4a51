// Package preflight provides readiness checks for the programs, directories
// and services stitch depends on.
//
// The merge command runs CheckSystemDeps before starting so a missing tool is
// reported up front, and `stitch doctor` renders every check. Disabled
// features are skipped.
package preflight
