package step

import "context"

// ActionFunc is the body of a CustomAction.
type ActionFunc func(ctx context.Context, env *Env) error

// CustomAction runs a user-supplied function as a step.
type CustomAction struct {
	Base
	fn ActionFunc
}

// NewCustom wraps fn as a step.
func NewCustom(fn ActionFunc) (*CustomAction, error) {
	if fn == nil {
		return nil, invalid("custom: nil function")
	}
	return &CustomAction{Base: Base{kind: "custom"}, fn: fn}, nil
}

// Run calls the function. Failures are logged and returned unchanged.
func (c *CustomAction) Run(ctx context.Context, env *Env) error {
	err := c.fn(ctx, env)
	if err != nil && !isCancellation(err) {
		env.log().Error("custom action failed", "step", c.Name(), "error", err)
	}
	return err
}
