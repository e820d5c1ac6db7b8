// Package settlement produces rider payout reports from the earnings recorded at
// claim time. Only earnings of DELIVERED orders that were not voided are payable.
package settlement

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go/writer"

	"foodDelivery/repository"
)

// Report is the payable total per rider for deliveries in [From, To).
type Report struct {
	From  time.Time
	To    time.Time
	Rows  []repository.SettlementRow
	Total int64
}

// Build sums earnings per rider over the window.
func Build(ctx context.Context, src repository.SettlementSource, from, to time.Time) (*Report, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("settlement window is empty: %s .. %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	rows, err := src.SettlementRows(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load settlement rows: %w", err)
	}
	r := &Report{From: from.UTC(), To: to.UTC(), Rows: rows}
	for _, row := range rows {
		r.Total += row.Amount
	}
	return r, nil
}

var csvHeader = []string{"rider_id", "rider_name", "deliveries", "delivery_fees", "payout"}

// WriteCSV renders the report with a header row. Amounts are minor units.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		rec := []string{
			strconv.FormatInt(row.RiderID, 10),
			row.RiderName,
			strconv.FormatInt(row.Deliveries, 10),
			strconv.FormatInt(row.DeliveryFees, 10),
			strconv.FormatInt(row.Amount, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type parquetRow struct {
	RiderID      int64  `parquet:"name=rider_id, type=INT64"`
	RiderName    string `parquet:"name=rider_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Deliveries   int64  `parquet:"name=deliveries, type=INT64"`
	DeliveryFees int64  `parquet:"name=delivery_fees, type=INT64"`
	Payout       int64  `parquet:"name=payout, type=INT64"`
	WindowStart  int64  `parquet:"name=window_start, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// WriteParquet renders the report as a single-row-group parquet file.
func (r *Report) WriteParquet(w io.Writer) error {
	pw, err := writer.NewParquetWriterFromWriter(w, new(parquetRow), 1)
	if err != nil {
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	for _, row := range r.Rows {
		rec := parquetRow{
			RiderID:      row.RiderID,
			RiderName:    row.RiderName,
			Deliveries:   row.Deliveries,
			DeliveryFees: row.DeliveryFees,
			Payout:       row.Amount,
			WindowStart:  r.From.UnixMilli(),
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return nil
}

// Format selects the rendering of a report.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Write renders the report in format f.
func (r *Report) Write(w io.Writer, f Format) error {
	switch f {
	case FormatCSV, "":
		return r.WriteCSV(w)
	case FormatParquet:
		return r.WriteParquet(w)
	}
	return errors.New("unsupported report format " + strconv.Quote(string(f)))
}
