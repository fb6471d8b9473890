package dagaz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	worldLabel  = "world"
	moduleLabel = "module"
)

var (
	occupiedCells = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagaz_occupied_cells",
		Help: "The number of occupied cells tracked by an index module.",
	}, []string{worldLabel, moduleLabel})

	partitionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagaz_partitions",
		Help: "The number of partitions tracked by an index module.",
	}, []string{worldLabel, moduleLabel})
)

func instrumentIndex(world, module string, cells, partitions int) {
	labels := prometheus.Labels{worldLabel: world, moduleLabel: module}
	occupiedCells.With(labels).Set(float64(cells))
	partitionCount.With(labels).Set(float64(partitions))
}

func instrumentClose(world, module string) {
	labels := prometheus.Labels{worldLabel: world, moduleLabel: module}
	occupiedCells.Delete(labels)
	partitionCount.Delete(labels)
}
