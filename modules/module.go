package modules

import (
	"context"

	"github.com/aukilabs/bigspace/models"
)

// Module is the interface that describes a module that extends what a world
// computes during its frames.
type Module interface {
	// Returns the module name. Module states are registered in the world under
	// this name.
	Name() string

	// Initializes the module with the world it serves.
	Init(*models.World)

	// Handles the changes of a frame. Modules run sequentially, in the order
	// they are given to the frame handler.
	//
	// Returned errors are collected in the frame stats and do not stop the
	// frame.
	HandleFrame(context.Context, *models.Frame) error

	// Releases the module resources.
	Close()
}
