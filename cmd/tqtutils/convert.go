package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/eak1mov/go-terrain/mb"
	"github.com/eak1mov/go-terrain/qtree"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tiledir"
	"github.com/eak1mov/go-terrain/tqt"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	outputFormat string
	outputPath   string
	depth        int
	tileSize     int
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between tile pyramid formats" }
func (c *convertCmd) Usage() string {
	return "tqtutils convert -i <path> -o <path> [-if <format> | -of <format>] [-depth <n> -size <px>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path (file, or pattern with {level}, {row}, {col} for dir)")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, tqt, dir)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, tqt, dir)")
	f.IntVar(&c.depth, "depth", -1, "Deepest level of a tqt output (default: from input)")
	f.IntVar(&c.tileSize, "size", 256, "Tile size in pixels of a tqt output")
}

// convertToTQT builds the store in clustered order by random access into the source.
func (c *convertCmd) convertToTQT(src tileSource) error {
	depth := c.depth
	if depth < 0 {
		var err error
		if depth, err = sourceDepth(src); err != nil {
			return err
		}
		if depth < 0 {
			return fmt.Errorf("cannot tell the depth of %s, pass -depth", c.inputPath)
		}
	}
	bar := progressbar.Default(int64(qtree.NumNodes(depth + 1)))
	err := tqt.Build(c.outputPath, progressReader{src, bar}, depth, c.tileSize, tqt.WithLogger(slog.Default()))
	bar.Finish()
	fmt.Println()
	return err
}

type progressReader struct {
	tile.Reader
	bar *progressbar.ProgressBar
}

func (r progressReader) ReadTile(tileID tile.ID) ([]byte, error) {
	r.bar.Add(1)
	return r.Reader.ReadTile(tileID)
}

func (c *convertCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	src, err := openSource(c.inputFormat, c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	outputFormat := deduceFormat(c.outputFormat, c.outputPath)
	if outputFormat == "tqt" {
		if err := c.convertToTQT(src); err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	var writer tile.Writer
	switch outputFormat {
	case "mbtiles":
		var metadata map[string]string
		if r, ok := src.(*tqt.Reader); ok {
			metadata = map[string]string{
				"format":  r.TileType().String(),
				"minzoom": "0",
				"maxzoom": fmt.Sprint(r.Depth()),
			}
		}
		writer, err = mb.NewWriter(c.outputPath, mb.WithMetadata(metadata), mb.WithLogger(slog.Default()))
	case "dir":
		writer, err = tiledir.NewWriter(c.outputPath)
	default:
		log.Printf("invalid output format: %q", c.outputFormat)
		return subcommands.ExitFailure
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := writer.(io.Closer); ok {
		defer closer.Close()
	}

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	err = src.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		err := writer.WriteTile(tileID, tileData)
		bar.Add(1)
		return err
	})
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
