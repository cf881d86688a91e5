// Package replicate implements the hosted-model prediction API used for
// image generation.
//
// A prediction is created with the "Prefer: wait" header so most requests
// complete synchronously; predictions that are still running when the
// response returns are polled until they reach a terminal status or the poll
// deadline passes. The first output URL is then fetched and returned as raw
// bytes.
package replicate
