package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/srg/bleadv/internal/advertising"
	"github.com/srg/bleadv/internal/status"
)

// txpowerCmd represents the txpower command
var txpowerCmd = &cobra.Command{
	Use:   "txpower [dBm...]",
	Short: "Show how TX power requests map to supported levels",
	Long: fmt.Sprintf(`Prints the level each requested TX power is rounded down to. Requests
below the lowest level get the lowest level, requests above the highest
level are rejected.

Supported levels (dBm): %v

Negative values follow "--" so they are not taken for flags.

Example:
  bleadv txpower 3
  bleadv txpower -- 3 -5 -50`, advertising.TxPowerLadder),
	Args: cobra.ArbitraryArgs,
	RunE: runTxPower,
}

var txpowerFormat string

func init() {
	txpowerCmd.Flags().StringVarP(&txpowerFormat, "format", "f", "text", "Output format (text, json)")
}

func runTxPower(cmd *cobra.Command, args []string) error {
	if txpowerFormat != "text" && txpowerFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [text json]", txpowerFormat)
	}

	requests := make([]int8, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseInt(a, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid TX power %q: must be an integer between -128 and 127", a)
		}
		requests = append(requests, int8(v))
	}

	cmd.SilenceUsage = true

	r := newReport()
	if len(requests) == 0 {
		r.Set("levels_dbm", advertising.TxPowerLadder[:])
		return writeReport(cmd.OutOrStdout(), txpowerFormat, "Supported TX power levels", r)
	}

	for _, dbm := range requests {
		key := fmt.Sprintf("%d dBm", dbm)
		if q, ok := advertising.QuantizeTxPower(dbm); ok {
			r.Set(key, fmt.Sprintf("%d dBm", q))
		} else {
			r.Set(key, status.InvalidParam)
		}
	}
	return writeReport(cmd.OutOrStdout(), txpowerFormat, "TX power mapping", r)
}
