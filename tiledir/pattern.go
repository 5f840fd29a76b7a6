// Package tiledir reads and writes tile pyramids stored as one file per tile,
// with paths built from a pattern like "/data/tiles/{level}/{row}/{col}.png".
package tiledir

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-terrain/tile"
)

var ErrInvalidPattern = errors.New("tiledir: invalid file pattern")

var placeholders = []string{"{level}", "{row}", "{col}"}

func validatePattern(pattern string) error {
	for _, p := range placeholders {
		if strings.Count(pattern, p) != 1 {
			return fmt.Errorf("%w: placeholder %v must appear exactly once", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, tileID tile.ID) string {
	return strings.NewReplacer(
		"{level}", strconv.FormatUint(uint64(tileID.Level), 10),
		"{row}", strconv.FormatUint(uint64(tileID.Row), 10),
		"{col}", strconv.FormatUint(uint64(tileID.Col), 10),
	).Replace(pattern)
}

// compilePattern turns a file pattern into a regexp with named groups level, row and col.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	expr := regexp.QuoteMeta(pattern)
	for _, p := range placeholders {
		name := strings.Trim(p, "{}")
		expr = strings.Replace(expr, regexp.QuoteMeta(p), "(?P<"+name+">\\d+)", 1)
	}
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return re, nil
}

func parsePath(re *regexp.Regexp, filePath string) (tile.ID, bool) {
	matches := re.FindStringSubmatch(filePath)
	if matches == nil {
		return tile.ID{}, false
	}
	var v [3]uint32
	for i, p := range placeholders {
		n, err := strconv.ParseUint(matches[re.SubexpIndex(strings.Trim(p, "{}"))], 10, 32)
		if err != nil {
			return tile.ID{}, false
		}
		v[i] = uint32(n)
	}
	return tile.ID{Level: v[0], Row: v[1], Col: v[2]}, true
}
