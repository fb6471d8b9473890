package http

import (
	"net/http"

	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/bigspace/modules/dagaz"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

// WorldStats is the JSON summary of a world.
type WorldStats struct {
	UUID      string       `json:"uuid"`
	Frames    uint64       `json:"frames"`
	Entities  int          `json:"entities"`
	Grids     int          `json:"grids"`
	Precision string       `json:"precision"`
	Origin    *OriginStats `json:"origin,omitempty"`
	Indexes   []IndexStats `json:"indexes,omitempty"`
}

type OriginStats struct {
	Entity uint32 `json:"entity_id"`
	Grid   uint32 `json:"grid_id"`
	Cell   string `json:"cell"`
}

type IndexStats struct {
	Module     string `json:"module"`
	Cells      int    `json:"cells"`
	Entities   int    `json:"entities"`
	Partitions int    `json:"partitions"`
}

// HandleWorldStats serves the stats of a world and of the given index
// modules.
func HandleWorldStats(world *models.World, indexes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := WorldStats{
			UUID:      world.UUID,
			Frames:    world.Frames(),
			Entities:  world.EntityCount(),
			Grids:     world.Tree().Len(),
			Precision: world.Precision.String(),
		}

		if id, ok := world.FloatingOrigin(); ok {
			if origin, ok, err := world.ResolveOrigin(); err == nil && ok {
				stats.Origin = &OriginStats{
					Entity: id,
					Grid:   origin.Grid,
					Cell:   origin.Cell.String(),
				}
			}
		}

		for _, name := range indexes {
			state, ok := world.ModuleState(name)
			if !ok {
				continue
			}

			s, ok := state.(*dagaz.State)
			if !ok {
				continue
			}

			stats.Indexes = append(stats.Indexes, IndexStats{
				Module:     name,
				Cells:      s.Cells.Len(),
				Entities:   s.Cells.EntityCount(),
				Partitions: s.Partitions.Len(),
			})
		}

		b, err := json.Marshal(stats)
		if err != nil {
			logs.WithTag(worldUUIDTag, world.UUID).
				Error(errors.New("encoding world stats failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}

const worldUUIDTag = "world_uuid"
