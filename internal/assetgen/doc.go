// Package assetgen coordinates asset generation for one episode.
//
// An Orchestrator run walks four stages in fixed order: narration, segment
// images, thumbnail, and archival photos. Each stage may be skipped. Within
// the image stage items run concurrently through imagegen's bounded batch;
// the stages themselves never overlap. Every produced asset is materialized
// under the episode directory, recorded in the store, and tallied into the
// returned Manifest.
//
// Only structural problems (unknown episode, missing credential for a stage
// that will call out) fail a run, and they are detected before any cost is
// incurred. Every other failure is captured in Manifest.FailedAssets with its
// stage and ordinal so a run completes even when some assets do not.
package assetgen
