package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/bleadv/internal/groutine"
	"github.com/srg/bleadv/internal/payload"
	"github.com/srg/bleadv/pkg/config"
)

// advertiseCmd represents the advertise command
var advertiseCmd = &cobra.Command{
	Use:   "advertise",
	Short: "Advertise rotating manufacturer data",
	Long: `Starts advertising and replaces the manufacturer specific data once per
update period. Payloads come from one of:

  static   the same bytes every period (--data)
  counter  an incrementing big-endian counter after an optional --data prefix
  lua      the return value of a Lua function, called with the sequence number

Each update goes to the buffer the radio is not reading, so advertising never
stops while data changes.

Example:
  bleadv advertise --mfg-id 0x0499 --data "01 02"
  bleadv advertise --payload counter --counter-width 4 --interval 200 --every 500ms
  bleadv advertise --payload lua --script beacon.lua --duration 30s`,
	Args: cobra.NoArgs,
	RunE: runAdvertise,
}

var (
	advertiseRadio        radioFlags
	advertisePayload      string
	advertiseData         string
	advertiseCounterWidth int
	advertiseScript       string
	advertiseFunction     string
)

func init() {
	advertiseRadio.register(advertiseCmd)

	d := config.DefaultConfig()
	advertiseCmd.Flags().StringVarP(&advertisePayload, "payload", "p", d.Payload.Kind, "Payload source (static, counter, lua)")
	advertiseCmd.Flags().StringVar(&advertiseData, "data", d.Payload.Hex, "Hex payload, or counter prefix")
	advertiseCmd.Flags().IntVar(&advertiseCounterWidth, "counter-width", d.Payload.CounterWidth, "Counter width in bytes (1, 2, 4)")
	advertiseCmd.Flags().StringVar(&advertiseScript, "script", d.Payload.Script, "Lua script file for --payload lua")
	advertiseCmd.Flags().StringVar(&advertiseFunction, "function", d.Payload.Function, "Lua function returning the payload")
}

func applyPayloadFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("payload") {
		cfg.Payload.Kind = advertisePayload
	}
	if flags.Changed("data") {
		cfg.Payload.Hex = advertiseData
	}
	if flags.Changed("counter-width") {
		cfg.Payload.CounterWidth = advertiseCounterWidth
	}
	if flags.Changed("script") {
		cfg.Payload.Script = advertiseScript
	}
	if flags.Changed("function") {
		cfg.Payload.Function = advertiseFunction
	}
}

func runAdvertise(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	advertiseRadio.apply(cmd, cfg)
	applyPayloadFlags(cmd, cfg)
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

	src, closeSrc, err := newPayloadSource(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

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
	logger.WithFields(logrus.Fields{
		"backend":     cfg.Backend,
		"interval_ms": cfg.IntervalMs,
		"payload":     cfg.Payload.Kind,
	}).Info("Advertising started")

	feeder := payload.NewFeeder(src, sess.port, cfg.Payload.Every, logger)
	runErr := feeder.Run(ctx)

	if sess.ctrl.Advertising() {
		if err := sess.ctrl.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop advertising")
		}
	}
	if runErr != nil {
		return runErr
	}

	sent, skipped := feeder.Counts()
	r := statusReport(sess.ctrl.Status())
	r.Set("payloads_sent", sent)
	r.Set("payloads_skipped", skipped)
	r.Set("sent_events", sess.SentEvents())
	return writeReport(cmd.OutOrStdout(), cfg.OutputFormat, "Advertising summary", r)
}

// newPayloadSource builds the configured source. The returned func releases it.
func newPayloadSource(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *logrus.Logger) (payload.Source, func(), error) {
	noop := func() {}
	pc := &cfg.Payload

	switch pc.Kind {
	case config.PayloadCounter:
		prefix, err := pc.Bytes()
		if err != nil {
			return nil, noop, err
		}
		c, err := payload.NewCounter(prefix, pc.CounterWidth)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil

	case config.PayloadLua:
		logger.WithField("file", pc.Script).Info("Loading payload script")
		src, err := payload.LoadLuaSourceFile(pc.Script, pc.Function, logger)
		if err != nil {
			return nil, noop, err
		}
		out := cmd.ErrOrStderr()
		groutine.Go(ctx, "lua-print", func(ctx context.Context) {
			for {
				select {
				case <-ctx.Done():
					return
				case line := <-src.Output():
					fmt.Fprintln(out, line)
				}
			}
		})
		return src, src.Close, nil

	default:
		data, err := pc.Bytes()
		if err != nil {
			return nil, noop, err
		}
		return &payload.Static{Data: data}, noop, nil
	}
}
