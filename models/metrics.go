package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	worldLabel = "world"
	kindLabel  = "kind"

	kindEntity = "entity"
	kindGrid   = "grid"
)

var (
	worldCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_count",
		Help: "The number of worlds.",
	})

	worldEntityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "world_entity_count",
		Help: "The number of entities in a world.",
	}, []string{worldLabel, kindLabel})

	worldEntityCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "world_entity_count_total",
		Help: "The total number of spawned entities.",
	}, []string{worldLabel, kindLabel})
)

func instrumentIncreaseWorldGauge() {
	worldCount.Inc()
}

func instrumentDecreaseWorldGauge() {
	worldCount.Dec()
}

func instrumentSpawn(world string, isGrid bool) {
	labels := prometheus.Labels{worldLabel: world, kindLabel: entityKind(isGrid)}
	worldEntityCount.With(labels).Inc()
	worldEntityCountTotal.With(labels).Inc()
}

func instrumentDespawn(world string, isGrid bool) {
	worldEntityCount.
		With(prometheus.Labels{worldLabel: world, kindLabel: entityKind(isGrid)}).
		Dec()
}

func entityKind(isGrid bool) string {
	if isGrid {
		return kindGrid
	}
	return kindEntity
}
