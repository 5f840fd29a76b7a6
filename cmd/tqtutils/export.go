package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/eak1mov/go-terrain/index"
	"github.com/eak1mov/go-terrain/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type exportCmd struct {
	inputFormat     string
	inputPath       string
	outputIndexPath string
	outputTilesPath string
}

func (c *exportCmd) Name() string     { return "export_index" }
func (c *exportCmd) Synopsis() string { return "export tile index and data from a tile pyramid" }
func (c *exportCmd) Usage() string {
	return "tqtutils export_index -i <path> -o <path> [-t <path> -if <format>]\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, tqt, dir)")
	f.StringVar(&c.outputIndexPath, "o", "", "Output index file path")
	f.StringVar(&c.outputTilesPath, "t", "", "Output tiles file path (required unless the input is tqt)")
}

// exportTiles copies every payload into a new data file and indexes it there.
func (c *exportCmd) exportTiles(reader tile.Visitor) error {
	if c.outputTilesPath == "" {
		return fmt.Errorf("-t is required for this input")
	}
	indexFile, err := os.Create(c.outputIndexPath)
	if err != nil {
		return err
	}
	defer indexFile.Close()
	indexWriter := bufio.NewWriter(indexFile)

	tilesFile, err := os.Create(c.outputTilesPath)
	if err != nil {
		return err
	}
	defer tilesFile.Close()
	tilesWriter := bufio.NewWriter(tilesFile)
	tilesOffset := uint64(0)

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())

	err = reader.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		if len(tileData) == 0 {
			return nil
		}
		indexItem := index.Item{
			Level:  tileID.Level,
			Row:    tileID.Row,
			Col:    tileID.Col,
			Length: uint32(len(tileData)),
			Offset: tilesOffset,
		}
		if err := binary.Write(indexWriter, binary.LittleEndian, indexItem); err != nil {
			return err
		}
		if _, err := tilesWriter.Write(tileData); err != nil {
			return err
		}
		tilesOffset += uint64(len(tileData))
		bar.Add(1)
		return nil
	})

	bar.Finish()
	fmt.Println()

	if err != nil {
		return err
	}
	if err := tilesWriter.Flush(); err != nil {
		return err
	}
	return indexWriter.Flush()
}

// exportLocations indexes payloads in place, so the store file itself is the data file.
func (c *exportCmd) exportLocations(reader tile.LocationVisitor) error {
	indexItems, err := index.Collect(reader)
	if err != nil {
		return err
	}

	file, err := os.Create(c.outputIndexPath)
	if err != nil {
		return err
	}
	defer file.Close()

	return index.WriteAll(indexItems, file)
}

func (c *exportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	reader, err := openSource(c.inputFormat, c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	if visitor, ok := reader.(tile.LocationVisitor); ok && c.outputTilesPath == "" {
		err = c.exportLocations(visitor)
	} else {
		err = c.exportTiles(reader)
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
