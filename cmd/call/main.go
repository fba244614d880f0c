// Command call places a voice call through the modem and hangs up when
// the operator presses Enter or interrupts the tool.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"vitals-alert/internal/cli"
	"vitals-alert/internal/modem"
	"vitals-alert/internal/patient"
)

// Caller is the part of the modem driver this tool drives.
type Caller interface {
	PlaceCall(number string) error
	EndCall() error
	Close() error
}

func main() {
	configPath := flag.String("config", cli.DefaultConfigPath, "path to the YAML config")
	port := flag.String("port", "", "modem serial device (overrides Modem.PortName)")
	number := flag.String("number", defaultNumber(), "number to dial")
	flag.Parse()

	cfg, logger, err := cli.Bootstrap(*configPath, "call")
	if err != nil {
		cli.Fatal(2, "call: %v", err)
	}
	defer logger.Sync()

	if cli.FlagsSet(flag.CommandLine)["port"] {
		cfg.Modem.PortName = *port
	}
	if err := cfg.Validate(); err != nil {
		cli.Fatal(2, "call: %v", err)
	}
	if cfg.Modem.PortName == "" {
		cli.NewSerialPortDetector().LogCandidates(logger)
		cli.Fatal(2, "call: no modem port; pass -port")
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

	if err := runCall(signals.Context(), driver, *number, os.Stdin, os.Stdout); err != nil {
		logger.Error("call failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// defaultNumber is the first responsible party's phone in the built-in
// roster.
func defaultNumber() string {
	parties := patient.DefaultRoster().ResponsibleParties()
	if len(parties) == 0 {
		return ""
	}
	return parties[0].PhoneNumber
}

// runCall dials number, waits for a line on input or for ctx to end, then
// hangs up. The session is closed on every path.
func runCall(ctx context.Context, c Caller, number string, input io.Reader, out io.Writer) (err error) {
	defer func() {
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := c.PlaceCall(number); err != nil {
		return fmt.Errorf("dial %s: %w", number, err)
	}
	fmt.Fprintf(out, "Calling %s. Press Enter to hang up.\n", number)

	waitForHangUp(ctx, input)

	if err := c.EndCall(); err != nil {
		return fmt.Errorf("hang up: %w", err)
	}
	fmt.Fprintln(out, "Call ended.")
	return nil
}

// waitForHangUp returns on the first line (or EOF) of input, or when ctx
// is done.
func waitForHangUp(ctx context.Context, input io.Reader) {
	pressed := make(chan struct{})
	go func() {
		bufio.NewReader(input).ReadString('\n')
		close(pressed)
	}()

	select {
	case <-pressed:
	case <-ctx.Done():
	}
}
