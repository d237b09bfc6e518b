// Package report computes the chart-ready aggregates for the dashboard and
// the date-filtered kelurahan preview. Everything here is a pure function of
// its inputs: the same applied range always reproduces the same numbers.
package report

import (
	"math"
	"time"

	"pusdash/models"
)

const dateLayout = "2006-01-02"

// Gender returns the patient gender split.
func Gender() []models.NameValue {
	return []models.NameValue{
		{Name: "Laki-laki", Value: 450},
		{Name: "Perempuan", Value: 550},
	}
}

// VisitTypes returns the new/returning visit split.
func VisitTypes() []models.NameValue {
	return []models.NameValue{
		{Name: "Kunjungan Baru", Value: 320},
		{Name: "Kunjungan Lama", Value: 680},
	}
}

// PaymentTypes returns the payment-scheme breakdown.
func PaymentTypes() []models.NameValue {
	return []models.NameValue{
		{Name: "BPJS", Value: 750},
		{Name: "Umum", Value: 200},
		{Name: "Asuransi Lain", Value: 50},
	}
}

func AgeGroups() []models.AgeGroupRow {
	return []models.AgeGroupRow{
		{Range: "0-5", Visits: 120},
		{Range: "6-12", Visits: 80},
		{Range: "13-18", Visits: 150},
		{Range: "19-45", Visits: 380},
		{Range: "46-60", Visits: 210},
		{Range: "60+", Visits: 60},
	}
}

// HistoryLogs returns the mock activity trail shown in the reports history
// dialog, newest first.
func HistoryLogs() []models.ActivityLog {
	return []models.ActivityLog{
		{User: "Admin", Action: "Export Laporan Bulanan", Date: "20 Feb 2024, 14:20"},
		{User: "Operator", Action: "Import Data Kelurahan", Date: "19 Feb 2024, 09:15"},
		{User: "Admin", Action: "Update Parameter BPJS", Date: "18 Feb 2024, 16:45"},
	}
}

// Summary backs the four stat cards at the top of the dashboard.
type Summary struct {
	TotalVisits      int    `json:"total_visits"`
	NewVisits        int    `json:"new_visits"`
	BPJSVisits       int    `json:"bpjs_visits"`
	BusiestKelurahan string `json:"busiest_kelurahan"`
}

// Summarize folds the mock aggregates into the stat-card values.
func Summarize(base []models.KelurahanRow) Summary {
	s := Summary{}
	for _, v := range VisitTypes() {
		s.TotalVisits += v.Value
		if v.Name == "Kunjungan Baru" {
			s.NewVisits = v.Value
		}
	}
	for _, p := range PaymentTypes() {
		if p.Name == "BPJS" {
			s.BPJSVisits = p.Value
		}
	}
	busiest := 0
	for _, k := range base {
		if k.Visits > busiest {
			busiest = k.Visits
			s.BusiestKelurahan = k.Name
		}
	}
	return s
}

// DeriveVisits perturbs the base rows by a value seeded from the applied date
// range, clamping each row at 10 visits. Row order follows the base rows.
func DeriveVisits(base []models.KelurahanRow, r models.DateRange) []models.ReportRow {
	start, _ := time.Parse(dateLayout, r.Start)
	end, _ := time.Parse(dateLayout, r.End)
	seed := float64(start.Unix()+end.Unix()) / 1_000_000

	rows := make([]models.ReportRow, 0, len(base))
	total := 0
	for _, item := range base {
		variation := int(math.Floor(math.Sin(seed+float64(len(item.Name))) * 50))
		visits := item.Visits + variation
		if visits < 10 {
			visits = 10
		}
		rows = append(rows, models.ReportRow{Name: item.Name, Visits: visits})
		total += visits
	}

	for i := range rows {
		// One decimal, as the preview table displays it.
		rows[i].Percent = math.Round(float64(rows[i].Visits)/float64(total)*1000) / 10
	}
	return rows
}

// Dashboard quick presets. "Minggu Ini" keeps the original's hardcoded
// reference start date rather than computing the week from today.
const (
	PresetToday     = "Hari Ini"
	PresetThisWeek  = "Minggu Ini"
	PresetThisMonth = "Bulan Ini"
	PresetCustom    = "Kustom"
)

// PresetRange resolves a preset name to its date range. The second return is
// false for unknown presets.
func PresetRange(preset string, today time.Time) (models.DateRange, bool) {
	t := today.Format(dateLayout)
	switch preset {
	case PresetToday:
		return models.DateRange{Start: t, End: t}, true
	case PresetThisWeek:
		return models.DateRange{Start: "2024-01-24", End: t}, true
	case PresetThisMonth:
		return models.DateRange{Start: "2024-01-01", End: "2024-01-31"}, true
	}
	return models.DateRange{}, false
}
