package coach

import (
	"log"

	"github.com/lowaak/form-coach/internal/engine"
)

// Controller handles UI events and coordinates with the SessionModel
type Controller struct {
	model  *SessionModel
	loop   *FrameLoop
	logger *log.Logger
}

// NewController creates a new Controller with the given dependencies
func NewController(model *SessionModel, loop *FrameLoop, logger *log.Logger) *Controller {
	if model == nil {
		panic("Controller: model cannot be nil")
	}
	if loop == nil {
		panic("Controller: loop cannot be nil")
	}
	if logger == nil {
		panic("Controller: logger cannot be nil")
	}
	return &Controller{
		model:  model,
		loop:   loop,
		logger: logger,
	}
}

// OnExerciseKey handles a number key press. Returns false if the key is not
// bound to an exercise.
func (c *Controller) OnExerciseKey(key rune) bool {
	mode, ok := engine.GetExerciseByKey(key)
	if !ok {
		return false
	}
	c.SelectExercise(mode)
	return true
}

// SelectExercise switches the active exercise
func (c *Controller) SelectExercise(mode engine.Mode) {
	c.logger.Printf("Switching to %s", mode)
	c.loop.SetMode(mode)
}

// ResetActiveExercise zeroes the active exercise's rep counter
func (c *Controller) ResetActiveExercise() {
	c.logger.Printf("Resetting active exercise counter")
	c.loop.ResetActive()
}

// OnEscapeKey handles when the Escape key is pressed
func (c *Controller) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// Shutdown stops the frame loop and cleans up resources
func (c *Controller) Shutdown() {
	c.loop.Shutdown()
}
