package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/cpu"

	"xenocpu/internal/config"
)

// ErrUnsupported is returned by provider methods with no source on this platform
var ErrUnsupported = errors.New("not supported on this platform")

// SystemInfoProvider is the platform collaborator behind the hardware
// inspector. Sampling methods block for one sample interval.
type SystemInfoProvider interface {
	// BrandString returns the raw CPU identification string
	BrandString() (string, error)
	LogicalThreads() (int, error)
	// NominalMHz returns the rated clock from the platform configuration
	NominalMHz() (int, error)
	// SampleLoad returns overall CPU utilisation in percent
	SampleLoad(ctx context.Context) (float64, error)
	// SampleFrequencyRatio returns the current clock as a percentage of nominal
	SampleFrequencyRatio(ctx context.Context) (float64, error)
}

// platformProvider reads CPUID through klauspost/cpuid and counters through
// gopsutil. Frequency sampling is implemented per OS.
type platformProvider struct {
	cfg config.HardwareConfig
}

// NewPlatformProvider returns the provider for the running platform
func NewPlatformProvider(cfg config.HardwareConfig) SystemInfoProvider {
	return &platformProvider{cfg: cfg}
}

func (p *platformProvider) BrandString() (string, error) {
	if cpuid.CPU.BrandName != "" {
		return cpuid.CPU.BrandName, nil
	}

	infos, err := cpu.Info()
	if err != nil {
		return "", fmt.Errorf("failed to read cpu info: %w", err)
	}
	for _, info := range infos {
		if info.ModelName != "" {
			return info.ModelName, nil
		}
	}
	return "", errors.New("no brand string reported")
}

func (p *platformProvider) LogicalThreads() (int, error) {
	n, err := cpu.Counts(true)
	if err != nil {
		return 0, fmt.Errorf("failed to count logical cpus: %w", err)
	}
	if n <= 0 && cpuid.CPU.LogicalCores > 0 {
		n = cpuid.CPU.LogicalCores
	}
	return n, nil
}

// reportedMHz is the clock gopsutil or CPUID report. On Linux gopsutil fills
// Mhz from cpuinfo_max_freq, which is the boost clock on most machines.
func (p *platformProvider) reportedMHz() (int, error) {
	infos, err := cpu.Info()
	if err == nil {
		for _, info := range infos {
			if info.Mhz > 0 {
				return int(info.Mhz), nil
			}
		}
	}
	if cpuid.CPU.Hz > 0 {
		return int(cpuid.CPU.Hz / 1_000_000), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read nominal clock: %w", err)
	}
	return 0, errors.New("no nominal clock reported")
}

func (p *platformProvider) SampleLoad(ctx context.Context) (float64, error) {
	// two samples SampleInterval apart
	percent, err := cpu.PercentWithContext(ctx, p.cfg.SampleInterval, false)
	if err != nil {
		return 0, fmt.Errorf("failed to sample cpu load: %w", err)
	}
	if len(percent) == 0 {
		return 0, errors.New("no cpu load sample")
	}
	return percent[0], nil
}

// trimBrand drops the leading padding CPUID leaves in front of some brands
func trimBrand(brand string) string {
	return strings.TrimLeft(brand, " \t")
}
