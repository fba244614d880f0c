// Command roster prints the patient roster and moves it between the
// built-in set, CSV files and an Excel workbook.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"go.uber.org/zap"

	"vitals-alert/internal/cli"
	"vitals-alert/internal/config"
	"vitals-alert/internal/patient"
)

type options struct {
	fromCSV   bool
	exportCSV bool
	xlsxPath  string
}

func main() {
	configPath := flag.String("config", cli.DefaultConfigPath, "path to the YAML config")
	fromCSV := flag.Bool("from-csv", false, "read the roster from the configured CSV files (default: Roster.LoadFromCSV)")
	exportCSV := flag.Bool("export", false, "write the roster to the configured CSV files")
	xlsxPath := flag.String("xlsx", "", "also write the roster to this .xlsx workbook")
	flag.Parse()

	cfg, logger, err := cli.Bootstrap(*configPath, "roster")
	if err != nil {
		cli.Fatal(2, "roster: %v", err)
	}
	defer logger.Sync()

	opts := options{fromCSV: cfg.Roster.LoadFromCSV, exportCSV: *exportCSV, xlsxPath: *xlsxPath}
	if cli.FlagsSet(flag.CommandLine)["from-csv"] {
		opts.fromCSV = *fromCSV
	}

	if err := run(cfg.Roster, opts, os.Stdout, logger); err != nil {
		logger.Error("roster failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Roster, opts options, out io.Writer, logger *zap.Logger) error {
	roster := patient.DefaultRoster()
	if opts.fromCSV {
		loaded, err := patient.LoadRosterCSV(cfg.PatientsCSV, cfg.ResponsibleCSV)
		if err != nil {
			return fmt.Errorf("import roster: %w", err)
		}
		roster = loaded
		logger.Info("roster imported", zap.String("patients", cfg.PatientsCSV), zap.Int("count", roster.Len()))
	}

	if err := printRoster(out, roster); err != nil {
		return err
	}

	if opts.exportCSV {
		if err := patient.SaveRosterCSV(roster, cfg.PatientsCSV, cfg.ResponsibleCSV); err != nil {
			return err
		}
		logger.Info("roster exported", zap.String("patients", cfg.PatientsCSV), zap.String("responsible", cfg.ResponsibleCSV))
	}

	if opts.xlsxPath != "" {
		if err := exportXLSX(opts.xlsxPath, roster); err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
		logger.Info("roster workbook written", zap.String("path", opts.xlsxPath))
	}
	return nil
}

func exportXLSX(path string, roster *patient.Roster) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := patient.WriteRosterXLSX(f, roster); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printRoster(w io.Writer, roster *patient.Roster) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "=== Responsible Persons ===")
	fmt.Fprintln(tw, "ID\tNAME\tPHONE")
	for _, party := range roster.ResponsibleParties() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", party.ID, party.FullName(), party.PhoneNumber)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "=== Patients ===")
	fmt.Fprintln(tw, "ID\tNAME\tBORN\tROOM\tRESPONSIBLE")
	for _, p := range roster.Patients() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.FullName(), p.DateOfBirth.Format(patient.DateLayout), p.Location, p.Responsible.FullName())
	}
	return tw.Flush()
}
