package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/eak1mov/go-terrain/gpu"
	"github.com/eak1mov/go-terrain/internal"
	"github.com/eak1mov/go-terrain/stream"
	"github.com/eak1mov/go-terrain/terrain"
	"github.com/eak1mov/go-terrain/texcache"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/subcommands"
)

// simConfig is the TOML configuration of the simulate command.
type simConfig struct {
	Map      terrain.Info `toml:"map"`
	View     viewConfig   `toml:"view"`
	Camera   []waypoint   `toml:"camera"`
	Generate *genConfig   `toml:"generate"`
}

type viewConfig struct {
	FovYDegrees    float64 `toml:"fovy_degrees"`
	ViewportHeight int     `toml:"viewport_height"`
	Far            float64 `toml:"far"`
	Threshold      float64 `toml:"threshold"`
	TextureLimitMB uint64  `toml:"texture_limit_mb"`
}

type waypoint struct {
	Position [3]float64 `toml:"position"`
	Frames   int        `toml:"frames"` // frames spent travelling to the next waypoint
}

// genConfig asks for a synthetic map to be written before the run.
type genConfig struct {
	LODs     int `toml:"lods"`
	TexDepth int `toml:"tex_depth"`
	TexSize  int `toml:"tex_size"`
}

func defaultSimConfig() simConfig {
	return simConfig{
		View: viewConfig{
			FovYDegrees:    60,
			ViewportHeight: 1080,
			Threshold:      stream.DefaultThreshold,
			TextureLimitMB: texcache.DefaultResidentLimit / texcache.OneMeg,
		},
	}
}

type simulateCmd struct {
	configPath string
	verbose    bool
}

func (c *simulateCmd) Name() string     { return "simulate" }
func (c *simulateCmd) Synopsis() string { return "stream a map along a camera path and report cache statistics" }
func (c *simulateCmd) Usage() string {
	return "tqtutils simulate -config <sim.toml> [-v]\n"
}
func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Simulation config file path")
	f.BoolVar(&c.verbose, "v", false, "Log every frame")
}

func loadSimConfig(filePath string) (simConfig, error) {
	config := defaultSimConfig()
	md, err := toml.DecodeFile(filePath, &config)
	if err != nil {
		return simConfig{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return simConfig{}, fmt.Errorf("%s: unknown keys %v", filePath, undecoded)
	}
	if len(config.Camera) == 0 {
		return simConfig{}, fmt.Errorf("%s: no camera waypoints", filePath)
	}
	return config, nil
}

// cameraPath yields the eye position of every frame, moving linearly between waypoints.
func cameraPath(waypoints []waypoint) []mgl64.Vec3 {
	var eyes []mgl64.Vec3
	for i, wp := range waypoints {
		from := mgl64.Vec3(wp.Position)
		if i+1 == len(waypoints) {
			eyes = append(eyes, from)
			break
		}
		to := mgl64.Vec3(waypoints[i+1].Position)
		n := max(wp.Frames, 1)
		for f := range n {
			eyes = append(eyes, from.Add(to.Sub(from).Mul(float64(f)/float64(n))))
		}
	}
	return eyes
}

func (c *simulateCmd) run(config simConfig, logger *slog.Logger) error {
	if config.Generate != nil {
		g := config.Generate
		logger.Info("writing synthetic map", "path", config.Map.Path, "lods", g.LODs)
		if err := internal.WriteMap(config.Map, g.LODs, g.TexDepth, g.TexSize); err != nil {
			return err
		}
	}

	m, err := terrain.NewMap(config.Map, terrain.WithLogger(logger))
	if err != nil {
		return err
	}
	device := gpu.NewMemDevice()
	s := stream.New(m, device,
		stream.WithLogger(logger),
		stream.WithThreshold(config.View.Threshold),
		stream.WithTextureOptions(texcache.WithResidentLimit(config.View.TextureLimitMB*texcache.OneMeg)),
	)
	defer s.Close()

	for _, cell := range m.Cells() {
		if err := s.LoadCell(cell); err != nil {
			return err
		}
		defer cell.Unload()
	}

	view := terrain.View{
		FovY:           mgl64.DegToRad(config.View.FovYDegrees),
		ViewportHeight: config.View.ViewportHeight,
		Far:            config.View.Far,
	}
	peakDrawn, failures := 0, 0
	for i, eye := range cameraPath(config.Camera) {
		view.Eye = eye
		items, err := s.Frame(view)
		if err != nil {
			failures++
			logger.Warn("frame had failures", "frame", i, "err", err)
		}
		peakDrawn = max(peakDrawn, len(items))
		stats := s.Stats()
		logger.Debug("frame", "frame", i, "eye", eye, "drawn", stats.Drawn, "added", stats.Added,
			"dropped", stats.Dropped, "resident", stats.Textures.ResidentBytes)
	}

	stats := s.Stats()
	deviceStats := device.Stats()
	fmt.Printf("frames:           %d (%d with failures)\n", stats.Frames, failures)
	fmt.Printf("tiles drawn:      %d last, %d peak\n", stats.Drawn, peakDrawn)
	fmt.Printf("texture entries:  %d (%d active, %d inactive)\n", stats.Textures.Entries, stats.Textures.Active, stats.Textures.Inactive)
	fmt.Printf("texture hits:     %d hits, %d misses, %d evictions\n", stats.Textures.Hits, stats.Textures.Misses, stats.Textures.Evictions)
	fmt.Printf("texture memory:   %.1f MiB of %.1f MiB\n", mib(stats.Textures.ResidentBytes), mib(stats.Textures.ResidentLimit))
	fmt.Printf("buffer slots:     %d created, %d in use, %d resizes\n", stats.Buffers.Created, stats.Buffers.InUse, stats.Buffers.Resizes)
	fmt.Printf("device:           %d textures, %d buffers created, %.1f MiB live\n",
		deviceStats.TexturesCreated, deviceStats.BuffersCreated, mib(deviceStats.LiveBytes))
	return nil
}

func mib(n uint64) float64 {
	return math.Round(float64(n)/texcache.OneMeg*10) / 10
}

func (c *simulateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	config, err := loadSimConfig(c.configPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := c.run(config, logger); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
