package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srg/bleadv/internal/advdata"
	"github.com/srg/bleadv/pkg/config"
)

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the advertising and scan response payloads",
	Long: `Encodes manufacturer data, device name and service list exactly as the
advertise command would put them on air, without touching a radio.

Example:
  bleadv encode --mfg-id 0x0499 --data "01 02"
  bleadv encode --data cafe --name beacon --nus --format json`,
	Args: cobra.NoArgs,
	RunE: runEncode,
}

var (
	encodeMfgID  uint16
	encodeData   string
	encodeName   string
	encodeNUS    bool
	encodeType   string
	encodeFormat string
)

func init() {
	d := config.DefaultConfig()
	encodeCmd.Flags().Uint16Var(&encodeMfgID, "mfg-id", d.ManufacturerID, "Manufacturer (company) id, 0 for 0xFFFF")
	encodeCmd.Flags().StringVar(&encodeData, "data", d.Payload.Hex, "Hex manufacturer data")
	encodeCmd.Flags().StringVar(&encodeName, "name", d.DeviceName, "Device name for the scan response")
	encodeCmd.Flags().BoolVar(&encodeNUS, "nus", d.AdvertiseNUS, "Advertise the Nordic UART Service in the scan response")
	encodeCmd.Flags().StringVarP(&encodeType, "type", "t", d.Type, "Advertising type")
	encodeCmd.Flags().StringVarP(&encodeFormat, "format", "f", d.OutputFormat, "Output format (text, json)")
}

func runEncode(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("mfg-id") {
		cfg.ManufacturerID = encodeMfgID
	}
	if flags.Changed("data") {
		cfg.Payload.Kind = config.PayloadStatic
		cfg.Payload.Hex = encodeData
	}
	if flags.Changed("name") {
		cfg.DeviceName = encodeName
	}
	if flags.Changed("nus") {
		cfg.AdvertiseNUS = encodeNUS
	}
	if flags.Changed("type") {
		cfg.Type = encodeType
	}
	if flags.Changed("format") {
		cfg.OutputFormat = encodeFormat
	}
	// payloads are identical on every backend, never open a real radio here
	cfg.Backend = config.BackendSim
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := cfg.Payload.Bytes()
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	sess, err := openSession(context.Background(), cfg, false, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.WithError(err).Warn("Session close failed")
		}
	}()

	if err := sess.ctrl.SetAdvertisementData(data); err != nil {
		return fmt.Errorf("failed to encode %d bytes: %w", len(data), err)
	}

	st := sess.ctrl.Status()
	adv := sess.ctrl.AdvertisementBytes(st.InFlight)
	scan := sess.ctrl.ScanResponseBytes(st.InFlight)
	decoded := advdata.Decode(adv)

	r := newReport()
	r.Set("type", st.Type)
	if decoded.Manufacturer != nil {
		r.Set("company_id", fmt.Sprintf("0x%04X", decoded.Manufacturer.CompanyID))
	}
	r.Set("adv_len", len(adv))
	r.Set("adv", hexString(adv))
	r.Set("scan_rsp_len", len(scan))
	r.Set("scan_rsp", hexString(scan))
	return writeReport(cmd.OutOrStdout(), cfg.OutputFormat, "Encoded payloads", r)
}
