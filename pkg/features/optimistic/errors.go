package optimistic

import "errors"

var (
	// ErrContainerDetached is returned by Insert when the container is not
	// part of its document.
	ErrContainerDetached = errors.New("optimistic: container not attached")

	// ErrTemplateShape is returned by Insert when the template does not
	// yield exactly one top-level element.
	ErrTemplateShape = errors.New("optimistic: template must yield one element")

	// ErrMissingPart is returned by New when the form markup lacks a
	// required element.
	ErrMissingPart = errors.New("optimistic: missing form part")

	// ErrNoContainer is returned by New when the target list cannot be found.
	ErrNoContainer = errors.New("optimistic: target list not found")
)
