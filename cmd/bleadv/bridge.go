package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bleadv/internal/advertising"
	"github.com/srg/bleadv/internal/comm"
	"github.com/srg/bleadv/internal/payload"
	"github.com/srg/bleadv/internal/ptyio"
	"github.com/srg/bleadv/internal/status"
)

// bridgeCmd represents the bridge command
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Advertise bytes written to a PTY",
	Long: fmt.Sprintf(`Creates a pseudoterminal and advertises whatever is written to it.
Input is cut into chunks of at most %d bytes; each chunk replaces the
manufacturer data and stays on air for at least one update period.

A rejected chunk is reported back on the terminal as "ERR <reason>".

Example:
  bleadv bridge --symlink /tmp/bleadv
  echo -n hello > /tmp/bleadv`, advertising.MaxManufacturerDataLen),
	Args: cobra.NoArgs,
	RunE: runBridge,
}

var (
	bridgeRadio   radioFlags
	bridgeSymlink string
)

func init() {
	bridgeRadio.register(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeSymlink, "symlink", "", "Create a symlink to the PTY device (e.g., /tmp/bleadv)")
}

// chunkSource is the PTY side of the bridge
type chunkSource interface {
	Next(ctx context.Context) ([]byte, error)
	Write(b []byte) (int, error)
}

// bridgeCounts summarizes a pump run
type bridgeCounts struct {
	Sent     uint64
	Rejected uint64
}

// pumpChunks sends chunks from src until it ends or ctx is done. Chunks the
// channel rejects are reported back to src, at most one chunk goes out per
// period.
func pumpChunks(ctx context.Context, src chunkSource, dst payload.Sender, period time.Duration, logger *logrus.Logger) (bridgeCounts, error) {
	var counts bridgeCounts
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		chunk, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return counts, nil
			}
			return counts, fmt.Errorf("PTY read failed: %w", err)
		}

		if err := dst.Send(&comm.Message{Data: chunk}); err != nil {
			counts.Rejected++
			logger.WithError(err).WithField("len", len(chunk)).Warn("Chunk rejected")
			if _, werr := src.Write([]byte(fmt.Sprintf("ERR %s\n", status.KindFromError(err)))); werr != nil {
				logger.WithError(werr).Debug("Failed to report rejected chunk")
			}
			continue
		}
		counts.Sent++
		logger.WithField("len", len(chunk)).Debug("Chunk on air")

		select {
		case <-ctx.Done():
			return counts, nil
		case <-ticker.C:
		}
	}
}

func runBridge(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	bridgeRadio.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	p, err := ptyio.Open(&ptyio.Options{
		ChunkSize: advertising.MaxManufacturerDataLen,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.WithError(err).Warn("PTY close failed")
		}
	}()

	ttyPath := p.TTYName()
	if bridgeSymlink != "" {
		if err := os.Symlink(ttyPath, bridgeSymlink); err != nil {
			return fmt.Errorf("failed to create symlink %s: %w", bridgeSymlink, err)
		}
		defer os.Remove(bridgeSymlink)
		ttyPath = bridgeSymlink
	}

	sess, err := openSession(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.WithError(err).Warn("Session close failed")
		}
	}()

	if err := sess.ctrl.Start(); err != nil {
		return fmt.Errorf("failed to start advertising: %w", err)
	}

	out := cmd.OutOrStdout()
	titleColor.Fprintln(out, "=== PTY-Advertising Bridge is Active ===")
	fmt.Fprintf(out, "TTY: %s\n", ttyPath)
	fmt.Fprintln(out, "Bridge is running. Press Ctrl+C to stop the bridge.")

	counts, runErr := pumpChunks(ctx, p, sess.port, cfg.Payload.Every, logger)
	if runErr != nil {
		return runErr
	}

	r := statusReport(sess.ctrl.Status())
	r.Set("chunks_sent", counts.Sent)
	r.Set("chunks_rejected", counts.Rejected)
	r.Set("bytes_read", p.Stats().ReadTotal)
	r.Set("bytes_dropped", p.Stats().DroppedTotal)
	r.Set("sent_events", sess.SentEvents())
	return writeReport(out, cfg.OutputFormat, "Bridge summary", r)
}
