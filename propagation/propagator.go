package propagation

import (
	"context"
	"runtime"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/aukilabs/bigspace/grid"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Member is an entity positioned in a grid.
type Member struct {
	Entity    uint32
	Grid      grid.ID
	Cell      cell.Coord
	Transform geom.Transform
}

// Result is the outcome of a propagation pass.
type Result struct {
	// The render transforms relative to the floating origin, by entity.
	Transforms map[uint32]mgl32.Mat4

	// The entities whose grid is not in the tree.
	Skipped []uint32
}

// Propagator computes render transforms of grid members.
type Propagator struct {
	// The maximum number of goroutines used by Propagate. Values lower than 1
	// use the number of CPUs.
	Workers int

	// The minimum number of members handled by a single goroutine.
	ChunkSize int
}

// Propagate computes the render transforms of the given members from the
// local origins of their grids. ComputeOrigins must have run first.
func (p Propagator) Propagate(ctx context.Context, tree *grid.Tree, members []Member) (Result, error) {
	type frame struct {
		grid   grid.Grid
		origin grid.LocalOrigin
	}

	frames := make(map[grid.ID]frame)
	for _, m := range members {
		if _, ok := frames[m.Grid]; ok {
			continue
		}

		g, ok := tree.Get(m.Grid)
		if !ok {
			continue
		}
		lo, _ := tree.LocalOrigin(m.Grid)
		frames[m.Grid] = frame{grid: g, origin: lo}
	}

	transforms := make([]mgl32.Mat4, len(members))
	ok := make([]bool, len(members))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	chunk := p.chunkSize(len(members))
	for start := 0; start < len(members); start += chunk {
		end := min(start+chunk, len(members))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			for i := start; i < end; i++ {
				m := members[i]
				f, found := frames[m.Grid]
				if !found {
					continue
				}

				transforms[i] = geom.Mat4Single(f.origin.MemberTransform(f.grid, m.Cell, m.Transform))
				ok[i] = true
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Transforms: make(map[uint32]mgl32.Mat4, len(members))}
	for i, m := range members {
		if !ok[i] {
			res.Skipped = append(res.Skipped, m.Entity)
			continue
		}
		res.Transforms[m.Entity] = transforms[i]
	}
	return res, nil
}

func (p Propagator) workers() int {
	if p.Workers < 1 {
		return runtime.NumCPU()
	}
	return p.Workers
}

func (p Propagator) chunkSize(n int) int {
	size := p.ChunkSize
	if size < 1 {
		size = 256
	}

	if perWorker := (n + p.workers() - 1) / p.workers(); perWorker > size {
		size = perWorker
	}
	return size
}

// GlobalTransform returns the render transform of a single member.
func GlobalTransform(tree *grid.Tree, m Member) (mgl32.Mat4, bool) {
	g, ok := tree.Get(m.Grid)
	if !ok {
		return mgl32.Mat4{}, false
	}

	lo, _ := tree.LocalOrigin(m.Grid)
	return geom.Mat4Single(lo.MemberTransform(g, m.Cell, m.Transform)), true
}
