// Package storage defines the interfaces for a blob storage provider.
// This abstraction allows the application to be independent of a specific
// storage implementation (e.g., Google Cloud Storage or the local filesystem).
package storage

import (
	"context"
)

// Provider defines the common interface for a blob storage provider. Cached
// artwork is addressed by a path derived from the movie slug; the provider
// answers whether a path is already populated and exposes a stable public URL
// for it.
type Provider interface {
	// Exists reports whether a blob is already stored at the path.
	Exists(ctx context.Context, path string) (bool, error)

	// Put uploads data to the path and returns its public URL.
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)

	// PublicURL returns the URL a stored blob is reachable at.
	PublicURL(path string) string
}

// NoOpProvider is a storage provider that performs no operations. It is
// useful for running the crawler in a dry-run mode where images are fetched
// but never cached.
type NoOpProvider struct{}

// Exists for NoOpProvider always reports a miss.
func (n *NoOpProvider) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

// Put for NoOpProvider discards the data and returns a pseudo URL.
func (n *NoOpProvider) Put(_ context.Context, path string, _ string, _ []byte) (string, error) {
	return n.PublicURL(path), nil
}

// PublicURL for NoOpProvider returns a noop:// URI.
func (n *NoOpProvider) PublicURL(path string) string {
	return "noop://" + path
}
