// Package ingest discovers documents dropped into the inbox directory.
package ingest

import (
	"context"
)

// FileResult is the per-file outcome of a directory scan.
type FileResult struct {
	Path string
	Err  string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// Handler receives every matching file a scan or watcher finds.
type Handler func(ctx context.Context, path string) error
