// Command receive-sms polls the modem for unread messages and prints them
// until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"vitals-alert/internal/cli"
	"vitals-alert/internal/config"
	"vitals-alert/internal/modem"
)

// Inbox is the part of the modem driver this tool drives.
type Inbox interface {
	ListUnreadMessages() ([]modem.SMS, error)
	Close() error
}

func main() {
	configPath := flag.String("config", cli.DefaultConfigPath, "path to the YAML config")
	port := flag.String("port", "", "modem serial device (overrides Modem.PortName)")
	poll := flag.Duration("poll", config.DefaultSMSPollInterval, "time between inbox checks")
	flag.Parse()

	cfg, logger, err := cli.Bootstrap(*configPath, "receive-sms")
	if err != nil {
		cli.Fatal(2, "receive-sms: %v", err)
	}
	defer logger.Sync()

	set := cli.FlagsSet(flag.CommandLine)
	if set["port"] {
		cfg.Modem.PortName = *port
	}
	if set["poll"] {
		cfg.Modem.SMSPollInterval = *poll
	}
	if err := cfg.Validate(); err != nil {
		cli.Fatal(2, "receive-sms: %v", err)
	}
	if cfg.Modem.PortName == "" {
		cli.NewSerialPortDetector().LogCandidates(logger)
		cli.Fatal(2, "receive-sms: no modem port; pass -port")
	}

	driver, err := modem.OpenSerial(cfg.Modem.PortName,
		modem.WithLogger(logger),
		modem.WithSettleDelay(cfg.Modem.SettleDelay),
		modem.WithResponseDelay(cfg.Modem.ResponseDelay),
	)
	if err != nil {
		logger.Error("open modem failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	signals := cli.NewSignalHandler(context.Background())
	defer signals.Stop()

	r := &receiver{
		inbox:  driver,
		poll:   cfg.Modem.SMSPollInterval,
		out:    os.Stdout,
		logger: logger,
		wait:   sleepContext,
	}
	if err := r.run(signals.Context()); err != nil {
		logger.Error("receive-sms failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type receiver struct {
	inbox  Inbox
	poll   time.Duration
	out    io.Writer
	logger *zap.Logger
	wait   func(ctx context.Context, d time.Duration) error
}

// run polls until ctx ends. A failed listing is logged and retried on the
// next poll. The session is closed on return.
func (r *receiver) run(ctx context.Context) (err error) {
	defer func() {
		if closeErr := r.inbox.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	fmt.Fprintf(r.out, "Waiting for messages (every %s). Ctrl+C to stop.\n", r.poll)
	for {
		messages, listErr := r.inbox.ListUnreadMessages()
		if listErr != nil {
			r.logger.Warn("list unread messages failed", zap.Error(listErr))
		} else if len(messages) > 0 {
			if err := printMessages(r.out, messages); err != nil {
				return err
			}
		}

		if r.wait(ctx, r.poll) != nil {
			fmt.Fprintln(r.out, "Stopped.")
			return nil
		}
	}
}

func printMessages(w io.Writer, messages []modem.SMS) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tFROM\tRECEIVED\tTEXT")
	for _, m := range messages {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.Index, m.Sender, m.Timestamp, m.Text)
	}
	return tw.Flush()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
