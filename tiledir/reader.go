package tiledir

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/eak1mov/go-terrain/tile"
)

// Reader implements tile.Reader and tile.Visitor for a tile directory.
type Reader struct {
	filePattern string
	rootDir     string
	pathRegexp  *regexp.Regexp
	logger      *slog.Logger
}

type Option func(*Reader)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) { r.logger = logger }
}

// NewReader creates a Reader for the given file pattern.
func NewReader(filePattern string, opts ...Option) (*Reader, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	pathRegexp, err := compilePattern(filepath.Clean(filePattern))
	if err != nil {
		return nil, err
	}

	// The walk root is the longest directory prefix without placeholders.
	path0 := formatPattern(filePattern, tile.ID{Level: 0, Row: 0, Col: 0})
	path1 := formatPattern(filePattern, tile.ID{Level: 1, Row: 1, Col: 1})
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}

	r := &Reader{
		filePattern: filePattern,
		rootDir:     path0,
		pathRegexp:  pathRegexp,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	tileData, err := os.ReadFile(formatPattern(r.filePattern, tileID))
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

// VisitTiles walks the directory tree in lexical order. Files not matching the
// pattern are skipped.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		tileID, ok := parsePath(r.pathRegexp, filePath)
		if !ok {
			r.logger.Debug("tiledir: skipping file", "path", filePath)
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}
