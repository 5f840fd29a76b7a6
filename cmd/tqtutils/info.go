package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/eak1mov/go-terrain/qtree"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/eak1mov/go-terrain/tqt"
	"github.com/eak1mov/go-terrain/tqt/spec"
	"github.com/google/subcommands"
)

type infoCmd struct {
	inputPath string
}

func (c *infoCmd) Name() string     { return "info" }
func (c *infoCmd) Synopsis() string { return "print the header and tile counts of a tqt file" }
func (c *infoCmd) Usage() string {
	return "tqtutils info -i <file.tqt>\n"
}
func (c *infoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input tqt file path")
}

func (c *infoCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if !tqt.IsTQTFile(c.inputPath) {
		log.Printf("%s: not a tqt file", c.inputPath)
		return subcommands.ExitFailure
	}
	reader, err := tqt.Open(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer reader.Close()

	header := reader.Header()
	fmt.Printf("file:      %s\n", reader.Path())
	fmt.Printf("version:   %d\n", header.Version)
	fmt.Printf("tile type: %v\n", header.TileType)
	fmt.Printf("tile size: %d\n", reader.TileSize())
	fmt.Printf("depth:     %d\n", reader.Depth())
	fmt.Printf("clustered: %v\n", header.Flags&spec.FlagClustered != 0)

	perLevel := make([]int, reader.Depth()+1)
	total, payloadBytes := 0, uint64(0)
	offsets := make(map[uint64]bool)
	for tileID, location := range tile.IterLocations(reader) {
		perLevel[tileID.Level]++
		total++
		if !offsets[location.Offset] {
			offsets[location.Offset] = true
			payloadBytes += location.Length
		}
	}
	for level, n := range perLevel {
		fmt.Printf("level %2d:  %d/%d tiles\n", level, n, qtree.NumNodes(level+1)-qtree.NumNodes(level))
	}
	fmt.Printf("tiles:     %d (%d distinct payloads, %d bytes)\n", total, len(offsets), payloadBytes)
	return subcommands.ExitSuccess
}
