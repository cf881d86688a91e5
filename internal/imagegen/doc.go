// Package imagegen produces styled documentary images through a hosted
// model backend.
//
// Each Tier maps to one backend model with a fixed per-image cost used for
// accounting. Service.GenerateBatch consults the asset cache before calling
// the backend, paces backend calls through a shared rate limiter, and runs
// items concurrently through workpool. Every batch item yields exactly one
// generation.Outcome; failures are captured per item and never abort the
// batch.
package imagegen
