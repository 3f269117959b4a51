// Package media describes the recorded segments stitch concatenates.
//
// An Item captures one input file: its normalized path, display name, size
// (when readable) and the capture timestamp embedded in the file name. Items
// carry no behaviour beyond construction; ordering and bookkeeping live in the
// fileset package.
package media
