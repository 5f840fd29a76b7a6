package main

import (
	"context"
	"flag"
	"image/png"
	"log"
	"os"

	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt"
	"github.com/google/subcommands"
)

type extractCmd struct {
	inputPath  string
	outputPath string
	level      uint
	row        uint
	col        uint
	flip       bool
}

func (c *extractCmd) Name() string     { return "extract" }
func (c *extractCmd) Synopsis() string { return "decode one tile of a tqt file to png" }
func (c *extractCmd) Usage() string {
	return "tqtutils extract -i <file.tqt> -level <l> -row <r> -col <c> -o <out.png> [-flip]\n"
}
func (c *extractCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input tqt file path")
	f.StringVar(&c.outputPath, "o", "", "Output png path")
	f.UintVar(&c.level, "level", 0, "Tile level")
	f.UintVar(&c.row, "row", 0, "Tile row (0 is north)")
	f.UintVar(&c.col, "col", 0, "Tile column (0 is west)")
	f.BoolVar(&c.flip, "flip", false, "Store rows bottom-up as uploaded to textures")
}

func (c *extractCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	reader, err := tqt.Open(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer reader.Close()

	tileID := tile.ID{Level: uint32(c.level), Row: uint32(c.row), Col: uint32(c.col)}
	img, err := reader.FetchTile(tileID, c.flip)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	file, err := os.Create(c.outputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
