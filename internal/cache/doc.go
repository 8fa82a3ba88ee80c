// Package cache provides the durable local cache: content-hash
// location records and catalog metadata, stored in an embedded SQLite
// database as namespaced key/value pairs.
//
// Location records answer "do I already have the bytes with this
// hash, and where" before any download starts. Metadata records avoid
// re-fetching catalog entries that were already seen.
//
// # Usage
//
//	store, err := cache.Open(cache.Options{Path: dbPath})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	record, err := store.LookupByHash(ctx, digest)
//	if err != nil {
//		return err
//	}
//	if record != nil {
//		// record.Locations lists known local copies.
//	}
//
// Every write is committed to disk before the call returns, so the
// cache stays consistent across crashes. A Store is safe for
// concurrent use.
package cache
