package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"foodDelivery/internal/db"
	"foodDelivery/internal/settlement"
	"foodDelivery/repository"
)

const dateLayout = "2006-01-02"

var settleFlags struct {
	from   string
	to     string
	out    string
	format string
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Write the rider payout report for a window of days",
	Long: `settle sums non-voided earnings of orders delivered in [from, to) per rider.
The report goes to a local directory or to s3://bucket/prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		from, err := time.Parse(dateLayout, settleFlags.from)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to := from.AddDate(0, 0, 1)
		if settleFlags.to != "" {
			if to, err = time.Parse(dateLayout, settleFlags.to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
		}
		format := settlement.Format(settleFlags.format)

		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		report, err := settlement.Build(ctx, repository.NewStore(d).Earnings, from, to)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := report.Write(&buf, format); err != nil {
			return err
		}

		dest := settleFlags.out
		if dest == "" && cfg.Settlement.Bucket != "" {
			dest = "s3://" + cfg.Settlement.Bucket
		}
		var up settlement.Uploader = settlement.LocalUploader{Dir: "."}
		if bucket, prefix, ok := settlement.ParseDestination(dest); ok {
			if up, err = settlement.NewS3UploaderForRegion(ctx, cfg.Settlement.Region, bucket, prefix); err != nil {
				return err
			}
		} else if dest != "" {
			up = settlement.LocalUploader{Dir: dest}
		}
		loc, err := up.Upload(ctx, settlement.FileName(report, format), buf.Bytes())
		if err != nil {
			return err
		}
		log.WithField("riders", len(report.Rows)).WithField("total", report.Total).Infof("settlement report written to %s", loc)
		fmt.Fprintln(cmd.OutOrStdout(), loc)
		return nil
	},
}

func init() {
	f := settleCmd.Flags()
	f.StringVar(&settleFlags.from, "from", time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout), "first day of the window (YYYY-MM-DD, UTC)")
	f.StringVar(&settleFlags.to, "to", "", "day after the last day of the window (default from + 1 day)")
	f.StringVar(&settleFlags.out, "out", "", "local directory or s3://bucket/prefix (default settlement bucket, else .)")
	f.StringVar(&settleFlags.format, "format", string(settlement.FormatCSV), "csv or parquet")
	rootCmd.AddCommand(settleCmd)
}
