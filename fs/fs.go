// Package fs provides file-based storage for crawl records and checkpoints.
package fs
