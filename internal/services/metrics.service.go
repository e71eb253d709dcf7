package services

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"xenocpu/internal/models"
)

const GB = 1024 * 1024 * 1024

// GetMemoryUsage returns memory usage information
func GetMemoryUsage(ctx context.Context) (*models.MemoryStatus, error) {
	virtualMemory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return &models.MemoryStatus{
		TotalGB:      float64(virtualMemory.Total) / GB,
		UsedGB:       float64(virtualMemory.Used) / GB,
		AvailableGB:  float64(virtualMemory.Available) / GB,
		UsagePercent: virtualMemory.UsedPercent,
	}, nil
}
