// Package main hosts the stitch CLI entrypoint and command graph.
//
// The Cobra command tree loads a recording folder, previews or runs the
// concatenation tool, and manages the retention folder, preferences, history
// and configuration. Configuration, logging and preference loading are
// centralized in commandContext so subcommands only deal with presentation.
// Every invocation that touched preferences enforces the retention threshold
// on the way out.
package main
