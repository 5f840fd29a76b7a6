package texcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resultLabel = "result"

var (
	textureActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_texture_activations_total",
		Help: "The total number of tile texture activations, by whether the texture was resident.",
	}, []string{resultLabel})

	textureEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terrain_texture_evictions_total",
		Help: "The total number of inactive tile textures freed to stay within the budget.",
	})

	textureResidentBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "terrain_texture_resident_bytes",
		Help: "The device memory held by tile textures.",
	})
)

func instrumentActivate(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	textureActivations.
		With(prometheus.Labels{resultLabel: result}).
		Inc()
}

func instrumentEvictions(n int) {
	textureEvictions.Add(float64(n))
}

func instrumentResidentBytes(delta float64) {
	textureResidentBytes.Add(delta)
}
