// Package main hosts the showreel CLI entrypoint and command graph.
//
// The Cobra command tree imports episode scripts into the local store, runs
// asset generation for an episode, and reports on persisted assets, spend,
// and cache usage. Configuration resolution, logger setup, and store access
// live in commandContext so subcommands only deal with presentation.
//
// New behavior belongs in the internal packages first; commands here should
// stay thin wrappers that parse flags and render results.
package main
