package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"xenocpu/internal/models"
	"xenocpu/internal/services"
	"xenocpu/internal/telemetry"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print CPU identity and a live hardware reading as JSON",
	RunE:  runInfo,
}

type infoReport struct {
	CPU      models.CPUIdentity     `json:"cpu"`
	Snapshot *models.SystemSnapshot `json:"snapshot"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	defer log.Sync() //nolint:errcheck

	hardware := services.NewHardwareInspector(services.NewPlatformProvider(cfg.Hardware), cfg.Hardware, telemetry.New(), log)
	report := infoReport{
		CPU:      hardware.GetCPUInfo(cfg.Hardware.NameCapacity),
		Snapshot: hardware.GetSystemSnapshot(cmd.Context()),
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
