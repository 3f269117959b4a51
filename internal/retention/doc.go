// Package retention manages the folder that receives source segments after a
// successful merge, and the reaper that empties it once it grows past a
// threshold.
//
// Admitted files are renamed in, never overwritten: a name collision gains a
// "_<unix seconds>" suffix before the extension. Occupancy is measured on each
// call from the folder's immediate, non-hidden entries. Clear removes every
// entry and keeps going past individual failures.
package retention
