package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawnTiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "terrain_stream_drawn_tiles",
		Help: "The number of tiles in the last frame's draw list.",
	})

	tileChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_stream_tile_changes_total",
		Help: "The total number of tiles entering and leaving the draw list.",
	}, []string{"change"})
)

func instrumentFrame(drawn, added, dropped int) {
	drawnTiles.Set(float64(drawn))
	tileChanges.With(prometheus.Labels{"change": "added"}).Add(float64(added))
	tileChanges.With(prometheus.Labels{"change": "dropped"}).Add(float64(dropped))
}
