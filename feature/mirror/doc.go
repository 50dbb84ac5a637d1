// Package mirror keeps a set of overlay objects in an S3/MinIO bucket in line with a desired
// collection of items.
//
// Writes are requests: Put, Remove, RemoveAll and Replace return at once and the bucket
// converges in the background through the asyncmap engine. BucketExecutor renders each
// item as one object under the configured prefix, overwriting in place on change, and runs
// the engine's two runners on dedicated dispatch loops with per-pass budgets taken from
// the configuration.
//
// # Sources
//
// Refresh loads the complete desired collection from the configured Source and hands it to
// Replace, so only items that changed touch the bucket:
//   - DBSource: enabled rows of a table (see models.ItemRow).
//   - ManifestSource: a YAML manifest on disk.
//   - CachedSource: memoises either for a TTL, with one shared load per expiry.
//
// # Routes
//
//	GET    /mirror/status
//	PUT    /mirror/items/{key}
//	DELETE /mirror/items/{key}
//	DELETE /mirror/items
//	POST   /mirror/replace
//	POST   /mirror/refresh
//
// Every write answers 202 Accepted, or waits for the bucket to converge with ?wait=true.
package mirror
