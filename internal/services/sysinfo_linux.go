//go:build linux

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// cpufreqDirs lists the per-CPU cpufreq directories under SysfsRoot
func (p *platformProvider) cpufreqDirs() ([]string, error) {
	pattern := filepath.Join(p.cfg.SysfsRoot, "devices", "system", "cpu", "cpu[0-9]*", "cpufreq")
	dirs, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no cpufreq entries under %s: %w", p.cfg.SysfsRoot, ErrUnsupported)
	}
	return dirs, nil
}

// baseKHz is the rated clock: base_frequency where the driver exposes it,
// otherwise cpuinfo_max_freq.
func baseKHz(dirs []string) (float64, error) {
	base, err := meanKHz(dirs, "base_frequency")
	if err == nil {
		return base, nil
	}
	return meanKHz(dirs, "cpuinfo_max_freq")
}

// NominalMHz reads the same cpufreq base clock SampleFrequencyRatio divides
// by, so nominal * ratio is the current clock. Without cpufreq it falls back
// to the clock gopsutil or CPUID report.
func (p *platformProvider) NominalMHz() (int, error) {
	dirs, err := p.cpufreqDirs()
	if err == nil {
		if base, err := baseKHz(dirs); err == nil {
			return int(math.Round(base / 1000)), nil
		}
	}
	return p.reportedMHz()
}

// SampleFrequencyRatio reads cpufreq's scaling_cur_freq for every CPU twice,
// SampleInterval apart, and reports the mean against the base clock.
func (p *platformProvider) SampleFrequencyRatio(ctx context.Context) (float64, error) {
	dirs, err := p.cpufreqDirs()
	if err != nil {
		return 0, err
	}

	first, err := meanKHz(dirs, "scaling_cur_freq")
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(p.cfg.SampleInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	second, err := meanKHz(dirs, "scaling_cur_freq")
	if err != nil {
		return 0, err
	}

	base, err := baseKHz(dirs)
	if err != nil {
		return 0, err
	}
	return (first + second) / 2 / base * 100, nil
}

// meanKHz averages one cpufreq attribute over every CPU that exposes it
func meanKHz(dirs []string, attr string) (float64, error) {
	var sum float64
	var n int
	for _, dir := range dirs {
		data, err := os.ReadFile(filepath.Join(dir, attr))
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil || v <= 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, errors.New("no readable " + attr)
	}
	return sum / float64(n), nil
}
