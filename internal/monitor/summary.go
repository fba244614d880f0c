package monitor

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"vitals-alert/internal/alert"
	"vitals-alert/internal/patient"
)

// writeSummary prints the interval table.
func writeSummary(w io.Writer, iteration int, at time.Time, rows []row) error {
	if _, err := fmt.Fprintf(w, "\n=== Interval %d (%s) ===\n", iteration, at.Format(patient.TimestampLayout)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATIENT\tROOM\tBP\tHR\tTEMP\tSPO2\tRR\tALERT\tSMS")
	for _, r := range rows {
		band, sms := "-", "-"
		if r.band != alert.BandNone {
			band, sms = r.band.String(), r.notification
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%d\t%.1f\t%d%%\t%d\t%s\t%s\n",
			r.patient.ID,
			r.patient.FullName(),
			r.patient.Location,
			r.reading.Systolic, r.reading.Diastolic,
			r.reading.HeartRate,
			r.reading.Temperature,
			r.reading.OxygenSaturation,
			r.reading.RespiratoryRate,
			band, sms)
	}
	return tw.Flush()
}
