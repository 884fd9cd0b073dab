package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/bleadv/pkg/config"
)

// radioFlags override the radio part of the config file. Only flags the
// user set are applied.
type radioFlags struct {
	backend    string
	intervalMs uint32
	txPower    int8
	mfgID      uint16
	advType    string
	channels   []int
	name       string
	nus        bool
	every      time.Duration
	duration   time.Duration
	format     string
}

func (f *radioFlags) register(cmd *cobra.Command) {
	d := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&f.backend, "backend", d.Backend, "Radio backend (sim, host)")
	flags.Uint32Var(&f.intervalMs, "interval", d.IntervalMs, "Advertising interval in ms (100-10000)")
	flags.Int8Var(&f.txPower, "tx-power", d.TxPower, "TX power in dBm, rounded down to a supported level")
	flags.Uint16Var(&f.mfgID, "mfg-id", d.ManufacturerID, "Manufacturer (company) id, 0 for 0xFFFF")
	flags.StringVarP(&f.advType, "type", "t", d.Type, "Advertising type")
	flags.IntSliceVar(&f.channels, "channels", d.Channels, "Primary advertising channels (37, 38, 39), all when empty")
	flags.StringVar(&f.name, "name", d.DeviceName, "Device name for the scan response")
	flags.BoolVar(&f.nus, "nus", d.AdvertiseNUS, "Advertise the Nordic UART Service in the scan response")
	flags.DurationVar(&f.every, "every", d.Payload.Every, "Payload update period")
	flags.DurationVarP(&f.duration, "duration", "d", d.Duration, "Run time (0 until interrupted)")
	flags.StringVarP(&f.format, "format", "f", d.OutputFormat, "Output format (text, json)")
}

func (f *radioFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = f.backend
	}
	if flags.Changed("interval") {
		cfg.IntervalMs = f.intervalMs
	}
	if flags.Changed("tx-power") {
		cfg.TxPower = f.txPower
	}
	if flags.Changed("mfg-id") {
		cfg.ManufacturerID = f.mfgID
	}
	if flags.Changed("type") {
		cfg.Type = f.advType
	}
	if flags.Changed("channels") {
		cfg.Channels = f.channels
	}
	if flags.Changed("name") {
		cfg.DeviceName = f.name
	}
	if flags.Changed("nus") {
		cfg.AdvertiseNUS = f.nus
	}
	if flags.Changed("every") {
		cfg.Payload.Every = f.every
	}
	if flags.Changed("duration") {
		cfg.Duration = f.duration
	}
	if flags.Changed("format") {
		cfg.OutputFormat = f.format
	}
}
