//go:build !linux

package services

import (
	"context"
	"fmt"
)

func (p *platformProvider) NominalMHz() (int, error) {
	return p.reportedMHz()
}

func (p *platformProvider) SampleFrequencyRatio(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("frequency ratio: %w", ErrUnsupported)
}
