//go:build !windows && !linux

package kbdhook

import (
	"context"

	"go.uber.org/zap"
)

type noSource struct{}

// NewSystemSource returns a source that reports ErrUnsupported.
func NewSystemSource(*zap.Logger) Source {
	return noSource{}
}

func (noSource) Run(context.Context, chan<- Event) error {
	return ErrUnsupported
}
