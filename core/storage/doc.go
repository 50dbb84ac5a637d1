// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface, which supports both AWS S3 and
// self-hosted MinIO instances and can be mocked for unit tests (see core/storage/mocks).
//
// # Operations
//
//   - BucketExists / MakeBucket: bucket bootstrap, combined by EnsureBucket.
//   - PutObject: uploads content, overwriting the previous version in place.
//   - RemoveObject: deletes one object.
//   - RemoveObjects: streamed bulk deletion, wrapped by RemoveAll.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	err = storage.EnsureBucket(ctx, client, "overlays", "")
package storage
