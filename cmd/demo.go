package main

import (
	"math"
	"time"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/aukilabs/bigspace/grid"
	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// systemGrid has cells of a million kilometers.
var systemGrid = grid.Grid{CellEdgeLength: 1e9, SwitchingThreshold: 1e6}

// surfaceGrid has cells of two kilometers.
var surfaceGrid = grid.Grid{CellEdgeLength: 2000, SwitchingThreshold: 100}

type planet struct {
	id     uint32
	radius float64
	speed  float64
	angle  float64
}

type ship struct {
	id       uint32
	velocity mgl32.Vec3
}

type solarSystem struct {
	world   *models.World
	planets []*planet
	ships   []ship
}

// spawnSolarSystem populates a world with a star, orbiting planets with ships
// flying over their surface, and a camera on the third planet holding the
// floating origin.
func spawnSolarSystem(w *models.World) (*solarSystem, error) {
	s := &solarSystem{world: w}

	if _, err := w.Spawn(w.RootGrid(), cell.Coord{}, geom.TransformIdentity(), "star", "background"); err != nil {
		return nil, err
	}

	orbits := []struct {
		radius float64
		speed  float64
	}{
		{radius: 5.8e10, speed: 8.3e-7},
		{radius: 1.08e11, speed: 3.2e-7},
		{radius: 1.5e11, speed: 2e-7},
		{radius: 2.28e11, speed: 1.06e-7},
	}

	for i, o := range orbits {
		p := &planet{
			radius: o.radius,
			speed:  o.speed,
			angle:  float64(i),
		}

		c, t, err := p.placement(w.Precision)
		if err != nil {
			return nil, err
		}

		id, err := w.SpawnGrid(w.RootGrid(), c, t, surfaceGrid, "planet")
		if err != nil {
			return nil, err
		}
		p.id = id
		s.planets = append(s.planets, p)

		for j := range 8 {
			sid, err := w.Spawn(id, cell.NewCoord(int64(j), 0, 0), geom.TransformIdentity(), "ship")
			if err != nil {
				return nil, err
			}

			s.ships = append(s.ships, ship{
				id:       sid,
				velocity: mgl32.Vec3{float32(10 * (j + 1)), 0, float32(j % 3)},
			})
		}
	}

	camera, err := w.Spawn(s.planets[2].id, cell.Coord{}, geom.TransformIdentity(), "camera")
	if err != nil {
		return nil, err
	}

	if err := w.SetFloatingOrigin(camera); err != nil {
		return nil, err
	}
	return s, nil
}

// placement returns the cell and local transform of the planet on its orbit.
func (p *planet) placement(precision cell.Precision) (cell.Coord, geom.Transform, error) {
	pos := mgl64.Vec3{p.radius * math.Cos(p.angle), p.radius * math.Sin(p.angle), 0}

	c, residual, err := grid.Recenter(pos, systemGrid.CellEdgeLength, precision)
	if err != nil {
		return cell.Coord{}, geom.Transform{}, err
	}

	t := geom.TransformFromTranslation(geom.Single(residual)).
		WithRotation(mgl64.QuatRotate(p.angle, geom.ZAxis))
	return c, t, nil
}

// animate returns a frame handler moving planets and ships for the next frame.
func (s *solarSystem) animate(frameDuration time.Duration) func(models.FrameStats) {
	dt := frameDuration.Seconds()

	return func(stats models.FrameStats) {
		for _, p := range s.planets {
			p.angle += p.speed * dt

			c, t, err := p.placement(s.world.Precision)
			if err != nil {
				logs.WithTag("entity_id", p.id).Error(err)
				continue
			}

			if err := s.world.SetTransform(p.id, c, t); err != nil {
				logs.WithTag("entity_id", p.id).Error(err)
			}
		}

		for _, sh := range s.ships {
			if err := s.world.Translate(sh.id, sh.velocity.Mul(float32(dt))); err != nil {
				logs.WithTag("entity_id", sh.id).Error(err)
			}
		}
	}
}
