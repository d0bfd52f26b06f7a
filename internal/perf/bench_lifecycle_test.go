package perf

import (
	"sort"
	"testing"
	"time"

	"github.com/parcelhub/parcelhub/internal/shared"
	"github.com/parcelhub/parcelhub/internal/shipment"
)

func sampleShipment() *shipment.Shipment {
	return &shipment.Shipment{
		TrackingID:    "TRK-000042",
		Source:        shipment.Office{Slug: "jakarta-hub", Title: "Jakarta Hub"},
		Destination:   shipment.Office{Slug: "bandung-office", Title: "Bandung Office"},
		CurrentStatus: shipment.StatusInTransit,
	}
}

// Authorization runs on every read and write, so it must stay far below request budgets.
func TestLifecycleDecisionLatencyTargets(t *testing.T) {
	s := sampleShipment()
	dest := shared.Principal{UserID: 2, Role: shared.RoleOfficeAdmin, OfficeID: "bandung-office"}

	samples := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		start := time.Now()
		for j := 0; j < 100; j++ {
			if _, ok := shipment.NextAction(s, dest); !ok {
				t.Fatal("destination admin should be able to mark arrival")
			}
		}
		samples = append(samples, time.Since(start)/100)
	}

	if p95 := percentile95(samples); p95 > time.Millisecond {
		t.Fatalf("lifecycle decision regression: p95=%s threshold=%s", p95, time.Millisecond)
	}
}

func BenchmarkAuthorize(b *testing.B) {
	s := sampleShipment()
	principals := []shared.Principal{
		{UserID: 1, Role: shared.RoleSuperAdmin},
		{UserID: 2, Role: shared.RoleOfficeAdmin, OfficeID: "jakarta-hub"},
		{UserID: 3, Role: shared.RoleOfficeAdmin, OfficeID: "bandung-office"},
		{Role: shared.RolePublic},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = shipment.Authorize(s, principals[i%len(principals)], shipment.StatusArrived)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
