// Package storage keeps the payloads that artifact records point at.
//
// Decompiled sources and their explanations are too large for ledger objects,
// so the scan worker writes them to one or more content-addressed backends and
// records only the content ID hex (the locator) on the ledger. The same
// payload always yields the same locator, whichever backend stored it.
//
// # Storage URI Format
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//
//   - file:///var/lib/canary/blobs
//   - s3://bucket-name/prefix?region=us-west-2&endpoint=http://minio:9000&path_style=true
//   - ipfs://127.0.0.1:5001/canary?timeout=30s
//
// Artifacts and explanations live in separate namespaces ("artifacts" and
// "explanations") under each backend's root.
//
// # Multi-Backend Example
//
//	locations, err := storage.ParseLocations([]string{
//	    "file:///var/lib/canary/blobs",
//	    "ipfs://127.0.0.1:5001/canary",
//	})
//	if err != nil {
//	    return err
//	}
//	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
package storage
