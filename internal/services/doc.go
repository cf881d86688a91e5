// Package services defines shared utilities consumed by the asset stages and
// the external generation integrations under this directory.
//
// Key responsibilities:
//   - Context helpers that stamp episode IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the orchestrator
//     separate structural failures (abort the run) from per-asset generation
//     failures (recorded in the manifest and skipped).
//   - StatusError, the typed non-2xx response error shared by the HTTP clients.
//
// Subpackages hold one client per external API (replicate, elevenlabs,
// flickr).
package services
