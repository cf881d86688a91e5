// Package flickr searches Creative Commons licensed concert photography.
//
// Search walks a cascade of text queries from most to least specific,
// restricted to the CC license allow-list, and collects unique photos until
// the requested count is reached. A query that fails is logged and skipped so
// the search degrades to fewer results instead of failing. Every API call and
// every download waits on the shared rate limiter.
package flickr
