package bufcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slotsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terrain_buffer_slots_created_total",
		Help: "The total number of vertex/index buffer slots created.",
	})

	slotsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "terrain_buffer_slots_in_use",
		Help: "The number of buffer slots currently acquired.",
	})

	bufferResizes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terrain_buffer_resizes_total",
		Help: "The total number of slot buffers reallocated to fit a different chunk size.",
	})
)

func instrumentSlotCreated() {
	slotsCreated.Inc()
}

func instrumentSlotsInUse(delta float64) {
	slotsInUse.Add(delta)
}

func instrumentResize() {
	bufferResizes.Inc()
}
