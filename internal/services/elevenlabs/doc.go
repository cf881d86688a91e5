// Package elevenlabs implements the text-to-speech API used for episode
// narration.
package elevenlabs
