// Package api contains the HTTP surface of the crawler service: the crawl
// trigger endpoint, health and readiness probes, the Prometheus metrics
// endpoint, and the static mount for locally cached artwork.
package api
