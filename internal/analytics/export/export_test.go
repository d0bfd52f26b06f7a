package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/parcelhub/parcelhub/internal/analytics"
)

func TestWriteSummaryCSV(t *testing.T) {
	summary := analytics.Summary{
		Totals:   analytics.Totals{Count: 3, Revenue: "900.00", AveragePrice: "300.00"},
		ByStatus: []analytics.StatusCount{{Status: "BOOKED", Count: 2}, {Status: "DELIVERED", Count: 1}},
	}
	buf := &bytes.Buffer{}
	if err := WriteSummaryCSV(buf, summary); err != nil {
		t.Fatalf("summary csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(records))
	}
	if records[2][1] != "900.00" {
		t.Fatalf("unexpected revenue cell %q", records[2][1])
	}
}

func TestWriteRowsCSV(t *testing.T) {
	rows := []analytics.Row{
		{TrackingID: "TRK-000001", Day: "2026-03-02", SenderName: "Sita, Jr.", Price: "450.50", Bus: &analytics.BusRef{BusNumber: "BA 1"}},
		{TrackingID: "TRK-000002", Day: "2026-03-02", Price: "10.00"},
	}
	buf := &bytes.Buffer{}
	if err := WriteRowsCSV(buf, rows); err != nil {
		t.Fatalf("rows csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[1][2] != "Sita, Jr." || records[1][6] != "BA 1" {
		t.Fatalf("unexpected first row %v", records[1])
	}
	if records[2][6] != "" {
		t.Fatalf("expected empty bus cell, got %q", records[2][6])
	}
}
