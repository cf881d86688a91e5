// Package assetcache is the content-addressed blob store for generated media.
//
// A Key names a blob by the external service that produced it, a digest of
// the generation parameters, and a file extension. Blobs live at
// <root>/<service>/<digest><ext>, are written atomically, and never expire:
// identical parameters always resolve to the same file, so a repeated run of
// an episode reuses every asset it already paid for.
package assetcache
