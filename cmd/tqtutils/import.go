package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"slices"

	"github.com/eak1mov/go-terrain/index"
	"github.com/eak1mov/go-terrain/mb"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tiledir"
	"github.com/eak1mov/go-terrain/tqt"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type importCmd struct {
	inputIndexPath string
	inputTilesPath string
	outputFormat   string
	outputPath     string
	tileSize       int
}

func (c *importCmd) Name() string     { return "import_index" }
func (c *importCmd) Synopsis() string { return "create a tile pyramid from an exported index and data" }
func (c *importCmd) Usage() string {
	return "tqtutils import_index -i <path> -t <path> -o <path> [-of <format> -size <px>]\n"
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputIndexPath, "i", "", "Input index file path")
	f.StringVar(&c.inputTilesPath, "t", "", "Input tiles file path")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, tqt, dir)")
	f.IntVar(&c.tileSize, "size", 256, "Tile size in pixels of a tqt output")
}

func (c *importCmd) newWriter(items []index.Item) (tile.Writer, error) {
	switch deduceFormat(c.outputFormat, c.outputPath) {
	case "mbtiles":
		return mb.NewWriter(c.outputPath, mb.WithLogger(slog.Default()))
	case "tqt":
		depth := 0
		for _, item := range items {
			depth = max(depth, int(item.Level))
		}
		return tqt.NewWriter(c.outputPath, depth, c.tileSize, tqt.WithLogger(slog.Default()))
	case "dir":
		return tiledir.NewWriter(c.outputPath)
	}
	return nil, fmt.Errorf("invalid output format: %q", c.outputFormat)
}

func (c *importCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	indexData, err := os.ReadFile(c.inputIndexPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	indexItems, err := index.ReadAll(indexData)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if len(indexItems) == 0 {
		log.Println("empty index")
		return subcommands.ExitFailure
	}

	tilesFile, err := os.Open(c.inputTilesPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer tilesFile.Close()

	writer, err := c.newWriter(indexItems)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := writer.(io.Closer); ok {
		defer closer.Close()
	}

	maxLength := slices.MaxFunc(indexItems, func(a, b index.Item) int {
		return cmp.Compare(a.Length, b.Length)
	}).Length
	buffer := make([]byte, maxLength)

	slices.SortFunc(indexItems, func(a, b index.Item) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	bar := progressbar.New(len(indexItems))

	for _, item := range indexItems {
		tileData := buffer[:item.Length]
		if _, err := tilesFile.ReadAt(tileData, int64(item.Offset)); err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		if err := writer.WriteTile(item.TileID(), tileData); err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		bar.Add(1)
	}

	bar.Finish()
	fmt.Println()

	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
