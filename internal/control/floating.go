package control

import (
	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/dynamo"
)

// Floating cancels gravity and nothing else. The target is ignored.
type Floating struct {
	Model arm.Model
}

func NewFloating(model arm.Model) *Floating {
	return &Floating{Model: model}
}

func (f *Floating) Control(q, dq dynamo.State, targetPos, targetVel r3.Vector) (dynamo.Control, error) {
	if err := checkFeedback(f.Model.N(), q, dq); err != nil {
		return nil, err
	}
	g, err := f.Model.G(q)
	if err != nil {
		return nil, err
	}
	return dynamo.Control(g), nil
}
