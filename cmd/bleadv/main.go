package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bleadv",
	Short: "BLE advertising channel tool",
	Long: `Bluetooth Low Energy (BLE) advertising tool that uses advertisements as a
one-way communication channel:

- Advertise rotating manufacturer data (static, counter or Lua generated)
- Bridge a PTY to advertisements: bytes written to the terminal go on air
- Encode advertising and scan response payloads without a radio
- Show how requested TX power maps to supported levels

The default "sim" backend runs an in-memory SoftDevice model; "host" drives
the local Bluetooth controller.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("bleadv {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(advertiseCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(txpowerCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file (default ./bleadv.yaml when present)")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
