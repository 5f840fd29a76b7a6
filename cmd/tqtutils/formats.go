package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/eak1mov/go-terrain/mb"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tiledir"
	"github.com/eak1mov/go-terrain/tqt"
)

func deduceFormat(format, filePath string) string {
	if format != "" {
		return format
	}
	switch {
	case strings.HasSuffix(filePath, ".mbtiles"):
		return "mbtiles"
	case strings.HasSuffix(filePath, ".tqt"):
		return "tqt"
	}
	return "dir"
}

// tileSource is what every input format provides.
type tileSource interface {
	tile.Reader
	tile.Visitor
}

func openSource(format, filePath string) (tileSource, error) {
	switch deduceFormat(format, filePath) {
	case "mbtiles":
		return mb.NewReader(filePath)
	case "tqt":
		return tqt.Open(filePath, tqt.WithLogger(slog.Default()))
	case "dir":
		return tiledir.NewReader(filePath, tiledir.WithLogger(slog.Default()))
	}
	return nil, fmt.Errorf("invalid input format: %q", format)
}

// sourceDepth returns the deepest level of a source, or -1 when it cannot tell.
func sourceDepth(src tileSource) (int, error) {
	switch s := src.(type) {
	case *tqt.Reader:
		return s.Depth(), nil
	case *mb.Reader:
		return s.Depth()
	}
	return -1, nil
}
