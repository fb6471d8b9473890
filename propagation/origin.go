// Package propagation computes render precision transforms relative to the
// floating origin.
package propagation

import (
	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/geom"
	"github.com/aukilabs/bigspace/grid"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxDepth bounds the walk of the grid tree.
	MaxDepth = 1000

	ErrTypeDepthExceeded = "propagation-depth-exceeded"
	ErrTypeNoPlacement   = "propagation-no-placement"
)

// Origin is the position of the floating origin.
type Origin struct {
	Grid grid.ID
	Cell cell.Coord
}

// Placements gives the cell and local transform of a grid within its parent.
type Placements interface {
	GridPlacement(id grid.ID) (cell.Coord, geom.Transform, bool)
}

// ComputeOrigins sets the local origin of every grid of the tree. The origin
// grid gets the origin cell with no offset. Its parent, siblings and their
// descendants are then reached by composing through the closest shared grid.
func ComputeOrigins(tree *grid.Tree, placements Placements, origin Origin, p cell.Precision) error {
	if !tree.Contains(origin.Grid) {
		return errors.New("floating origin grid not found").
			WithType(grid.ErrTypeUnknownGrid).
			WithTag("grid_id", origin.Grid)
	}

	tree.SetLocalOrigin(origin.Grid, grid.NewLocalOrigin(origin.Cell, mgl32.Vec3{}, mgl64.QuatIdent()))

	current := origin.Grid
	stack := []grid.ID{current}

	for depth := 0; depth < MaxDepth; depth++ {
		parent, hasParent := tree.Parent(current)
		if hasParent {
			if err := PropagateToParent(tree, placements, current, parent, p); err != nil {
				return err
			}

			for _, sibling := range tree.Siblings(current) {
				if err := PropagateToChild(tree, placements, parent, sibling, p); err != nil {
					return err
				}
				stack = append(stack, sibling)
			}
		}

		for len(stack) != 0 {
			g := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, child := range tree.Children(g) {
				if err := PropagateToChild(tree, placements, g, child, p); err != nil {
					return err
				}
				stack = append(stack, child)
			}
		}

		if !hasParent {
			return nil
		}
		current = parent
	}

	return errors.New("grid tree is deeper than the maximum depth").
		WithType(ErrTypeDepthExceeded).
		WithTag("max_depth", MaxDepth)
}

// PropagateToParent computes the local origin of parent from the local origin
// of its child grid. The math is done relative to the child cell so that
// precision only depends on how far the origin is from that cell.
func PropagateToParent(tree *grid.Tree, placements Placements, child, parent grid.ID, p cell.Precision) error {
	childGrid, childOrigin, err := gridAndOrigin(tree, child)
	if err != nil {
		return err
	}

	parentGrid, ok := tree.Get(parent)
	if !ok {
		return unknownGrid(parent)
	}

	childCell, childTransform, ok := placements.GridPlacement(child)
	if !ok {
		return noPlacement(child)
	}

	placement := geom.Rigid(
		geom.QuatDouble(childTransform.Normalized().Rotation),
		geom.Double(childTransform.Translation),
	)
	local := geom.Rigid(
		childOrigin.Rotation,
		childGrid.PositionDouble(childOrigin.Cell, childOrigin.Translation),
	)

	rotation, translation := geom.DecomposeRigid(placement.Mul4(local))
	delta, residual, err := parentGrid.TranslationToGrid(translation, p)
	if err != nil {
		return errors.New("propagating origin to parent failed").
			WithType(errors.Type(err)).
			WithTag("grid_id", parent).
			Wrap(err)
	}

	c, err := childCell.Add(p, delta)
	if err != nil {
		return errors.New("propagating origin to parent failed").
			WithType(errors.Type(err)).
			WithTag("grid_id", parent).
			Wrap(err)
	}

	tree.SetLocalOrigin(parent, grid.NewLocalOrigin(c, residual, rotation))
	return nil
}

// PropagateToChild computes the local origin of child from the local origin
// of its parent. The origin is expressed relative to the child cell before
// the inverse of the child placement is applied.
func PropagateToChild(tree *grid.Tree, placements Placements, parent, child grid.ID, p cell.Precision) error {
	parentGrid, parentOrigin, err := gridAndOrigin(tree, parent)
	if err != nil {
		return err
	}

	childGrid, ok := tree.Get(child)
	if !ok {
		return unknownGrid(child)
	}

	childCell, childTransform, ok := placements.GridPlacement(child)
	if !ok {
		return noPlacement(child)
	}

	local := geom.Rigid(
		parentOrigin.Rotation,
		parentGrid.DeltaToFloat(parentOrigin.Cell, childCell).Add(geom.Double(parentOrigin.Translation)),
	)
	view := geom.Inverse(geom.Rigid(
		geom.QuatDouble(childTransform.Normalized().Rotation),
		geom.Double(childTransform.Translation),
	))

	rotation, translation := geom.DecomposeRigid(view.Mul4(local))
	c, residual, err := childGrid.TranslationToGrid(translation, p)
	if err != nil {
		return errors.New("propagating origin to child failed").
			WithType(errors.Type(err)).
			WithTag("grid_id", child).
			Wrap(err)
	}

	tree.SetLocalOrigin(child, grid.NewLocalOrigin(c, residual, rotation))
	return nil
}

func gridAndOrigin(tree *grid.Tree, id grid.ID) (grid.Grid, grid.LocalOrigin, error) {
	g, ok := tree.Get(id)
	if !ok {
		return grid.Grid{}, grid.LocalOrigin{}, unknownGrid(id)
	}

	lo, _ := tree.LocalOrigin(id)
	return g, lo, nil
}

func unknownGrid(id grid.ID) error {
	return errors.New("grid not found").
		WithType(grid.ErrTypeUnknownGrid).
		WithTag("grid_id", id)
}

func noPlacement(id grid.ID) error {
	return errors.New("grid has no placement in its parent").
		WithType(ErrTypeNoPlacement).
		WithTag("grid_id", id)
}
