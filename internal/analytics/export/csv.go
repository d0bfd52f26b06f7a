package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/parcelhub/parcelhub/internal/analytics"
)

// WriteSummaryCSV serialises the report headline figures.
func WriteSummaryCSV(w io.Writer, summary analytics.Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Total Shipments", strconv.Itoa(summary.Count)},
		{"Total Revenue", summary.Revenue},
		{"Average Price", summary.AveragePrice},
	}
	for _, sc := range summary.ByStatus {
		records = append(records, []string{"Status " + sc.Status, strconv.Itoa(sc.Count)})
	}
	for _, pc := range summary.ByPaymentMode {
		records = append(records, []string{"Payment " + pc.PaymentMode, strconv.Itoa(pc.Count)})
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRowsCSV emits one line per shipment row.
func WriteRowsCSV(w io.Writer, rows []analytics.Row) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Tracking ID", "Day", "Sender", "Receiver", "From", "To", "Bus", "Price", "Payment", "Status"}); err != nil {
		return err
	}
	for _, row := range rows {
		bus := ""
		if row.Bus != nil {
			bus = row.Bus.BusNumber
		}
		if err := writer.Write([]string{
			row.TrackingID,
			row.Day,
			row.SenderName,
			row.ReceiverName,
			row.SourceBranch.Title,
			row.DestinationBranch.Title,
			bus,
			row.Price,
			row.PaymentMode,
			row.CurrentStatus,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
