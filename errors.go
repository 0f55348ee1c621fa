package plume

import "errors"

var (
	ErrCapacity         = errors.New("plume: collider capacity exceeded")
	ErrInvalidTriangles = errors.New("plume: triangle list length is not a multiple of 3")
	ErrUnknownCollider  = errors.New("plume: unknown collider")
	ErrUnknownNode      = errors.New("plume: unknown node")
	ErrNodeHasCollider  = errors.New("plume: node already has a collider")
	ErrInvalidShape     = errors.New("plume: invalid collider shape")
	ErrBadMagic         = errors.New("plume: bad collider storage magic")
)
