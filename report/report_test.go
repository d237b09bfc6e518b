package report

import (
	"math"
	"reflect"
	"testing"
	"time"

	"pusdash/models"
	"pusdash/seed"
)

var januari = models.DateRange{Start: "2024-01-01", End: "2024-01-31"}

func TestDeriveVisitsDeterministic(t *testing.T) {
	base := seed.Default().Kelurahan

	first := DeriveVisits(base, januari)
	second := DeriveVisits(base, januari)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("DeriveVisits is not idempotent for the same range:\n%v\n%v", first, second)
	}
}

func TestDeriveVisitsVariesWithRange(t *testing.T) {
	base := seed.Default().Kelurahan

	a := DeriveVisits(base, januari)
	b := DeriveVisits(base, models.DateRange{Start: "2024-02-01", End: "2024-02-29"})

	same := true
	for i := range a {
		if a[i].Visits != b[i].Visits {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected a different range to perturb at least one row")
	}
}

func TestDeriveVisitsRowShape(t *testing.T) {
	base := seed.Default().Kelurahan
	rows := DeriveVisits(base, januari)

	if len(rows) != len(base) {
		t.Fatalf("Expected %d rows, got %d", len(base), len(rows))
	}
	for i, row := range rows {
		if row.Name != base[i].Name {
			t.Errorf("Row %d: expected name %s, got %s", i, base[i].Name, row.Name)
		}
		if row.Visits < 10 {
			t.Errorf("Row %s: visits %d below the floor of 10", row.Name, row.Visits)
		}
		// Perturbation is bounded by the sine amplitude
		if diff := row.Visits - base[i].Visits; diff > 50 || diff < -50 {
			if row.Visits != 10 {
				t.Errorf("Row %s: perturbation %d outside [-50, 50]", row.Name, diff)
			}
		}
	}
}

func TestDeriveVisitsClampsSmallRows(t *testing.T) {
	base := []models.KelurahanRow{{Name: "Kecil", Visits: 12}}

	// Scan a few ranges; whenever sin pushes the row negative it must clamp.
	for day := 1; day <= 28; day++ {
		r := models.DateRange{Start: "2024-03-01", End: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")}
		rows := DeriveVisits(base, r)
		if rows[0].Visits < 10 {
			t.Fatalf("Range %v produced visits below the floor: %d", r, rows[0].Visits)
		}
	}
}

func TestDeriveVisitsPercentSums(t *testing.T) {
	base := seed.Default().Kelurahan
	rows := DeriveVisits(base, januari)

	sum := 0.0
	for _, row := range rows {
		if row.Percent < 0 || row.Percent > 100 {
			t.Errorf("Row %s: percent %.1f out of bounds", row.Name, row.Percent)
		}
		sum += row.Percent
	}
	// Each row rounds to one decimal, so allow 0.05 per row of drift.
	if math.Abs(sum-100.0) > 0.05*float64(len(rows)) {
		t.Errorf("Percent column sums to %.2f, expected ~100", sum)
	}
}

func TestPresetRange(t *testing.T) {
	today := time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)

	r, ok := PresetRange(PresetToday, today)
	if !ok || r.Start != "2024-02-20" || r.End != "2024-02-20" {
		t.Errorf("Hari Ini: got %+v ok=%v", r, ok)
	}

	r, ok = PresetRange(PresetThisWeek, today)
	if !ok || r.Start != "2024-01-24" || r.End != "2024-02-20" {
		t.Errorf("Minggu Ini: got %+v ok=%v", r, ok)
	}

	r, ok = PresetRange(PresetThisMonth, today)
	if !ok || r.Start != "2024-01-01" || r.End != "2024-01-31" {
		t.Errorf("Bulan Ini: got %+v ok=%v", r, ok)
	}

	if _, ok = PresetRange("Tahun Ini", today); ok {
		t.Error("Unknown preset should not resolve")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(seed.Default().Kelurahan)
	if s.TotalVisits != 1000 {
		t.Errorf("Expected 1000 total visits, got %d", s.TotalVisits)
	}
	if s.NewVisits != 320 {
		t.Errorf("Expected 320 new visits, got %d", s.NewVisits)
	}
	if s.BPJSVisits != 750 {
		t.Errorf("Expected 750 BPJS visits, got %d", s.BPJSVisits)
	}
	if s.BusiestKelurahan != "Krendang" {
		t.Errorf("Expected Krendang as busiest, got %s", s.BusiestKelurahan)
	}
}

func TestHistoryLogs(t *testing.T) {
	logs := HistoryLogs()
	if len(logs) != 3 {
		t.Fatalf("Expected 3 activity logs, got %d", len(logs))
	}
	if logs[0].Action != "Export Laporan Bulanan" || logs[0].User != "Admin" {
		t.Errorf("Unexpected newest log: %+v", logs[0])
	}
}

func TestAggregateTotals(t *testing.T) {
	genderTotal := 0
	for _, g := range Gender() {
		genderTotal += g.Value
	}
	if genderTotal != 1000 {
		t.Errorf("Gender split should total 1000, got %d", genderTotal)
	}

	paymentTotal := 0
	for _, p := range PaymentTypes() {
		paymentTotal += p.Value
	}
	if paymentTotal != 1000 {
		t.Errorf("Payment split should total 1000, got %d", paymentTotal)
	}
}
