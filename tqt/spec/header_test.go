package spec_test

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/eak1mov/go-terrain/tqt/spec"
	"github.com/stretchr/testify/require"
)

func TestHeaderLength(t *testing.T) {
	require.Equal(t, binary.Size(spec.Header{}), spec.HeaderLength)
}

func TestHeaderSerializer(t *testing.T) {
	header1 := spec.Header{
		Magic:    spec.HeaderMagic,
		Version:  spec.HeaderVersion,
		TileType: spec.TileTypePng,
		Flags:    spec.FlagClustered,
		Depth:    2,
		TileSize: 256,
	}
	headerData := spec.SerializeHeader(&header1)
	require.Len(t, headerData, spec.HeaderLength)
	require.Equal(t, []byte("tqt\x00"), headerData[:4])
	header2, err := spec.DeserializeHeader(headerData)
	require.Nil(t, err)
	require.Equal(t, header1, *header2)
}

func TestHeaderErrors(t *testing.T) {
	buf := []byte("foobar")
	_, err := spec.DeserializeHeader(buf)
	require.Truef(t, errors.Is(err, spec.ErrInvalidHeader), "%v", err)
	require.Truef(t, errors.Is(err, io.ErrUnexpectedEOF), "%v", err)

	_, err = spec.DeserializeHeader([]byte("PMTiles\x03--------"))
	require.ErrorIs(t, err, spec.ErrInvalidHeader)

	header := spec.Header{Magic: spec.HeaderMagic, Version: 7, Depth: 1, TileSize: 64}
	_, err = spec.DeserializeHeader(spec.SerializeHeader(&header))
	require.ErrorIs(t, err, spec.ErrInvalidVersion)

	header = spec.Header{Magic: spec.HeaderMagic, Version: spec.HeaderVersion, Depth: spec.MaxDepth + 1, TileSize: 64}
	_, err = spec.DeserializeHeader(spec.SerializeHeader(&header))
	require.ErrorIs(t, err, spec.ErrInvalidHeader)

	header = spec.Header{Magic: spec.HeaderMagic, Version: spec.HeaderVersion, Depth: 1}
	_, err = spec.DeserializeHeader(spec.SerializeHeader(&header))
	require.ErrorIs(t, err, spec.ErrInvalidHeader)
}

func TestDetectTileType(t *testing.T) {
	for data, want := range map[string]spec.TileType{
		"\x89PNG\r\n\x1a\nxxxx":        spec.TileTypePng,
		"\xff\xd8\xff\xe0":             spec.TileTypeJpeg,
		"RIFF\x00\x00\x00\x00WEBPVP8 ": spec.TileTypeWebp,
		"BM\x00\x00":                   spec.TileTypeBmp,
		"II*\x00":                      spec.TileTypeTiff,
		"MM\x00*":                      spec.TileTypeTiff,
		"hello":                        spec.TileTypeUnknown,
	} {
		require.Equal(t, want, spec.DetectTileType([]byte(data)), "%q", data)
	}
}
