// Package config loads, normalizes, and validates showreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// generation backends (REPLICATE_API_TOKEN, ELEVENLABS_API_KEY,
// ELEVENLABS_VOICE_ID, FLICKR_API_KEY). The Config type centralizes every knob
// the CLI and the asset orchestrator need so data directories and external
// service credentials are discovered in one pass.
//
// Credentials are optional at load time. Whether a credential is required
// depends on which stages a run enables, so that check belongs to the caller
// (see internal/preflight).
package config
