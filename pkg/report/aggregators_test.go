// pkg/report/aggregators_test.go
package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/David-Botos/sales-pipeline/pkg/cleaner"
	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// ---- Test Helpers ----

// cleanedRow builds a row shaped like the cleaning pipeline's output, with
// overrides applied on top of sensible defaults.
func cleanedRow(overrides model.Row) model.Row {
	row := model.Row{
		"Date":                   time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC),
		"City":                   "Ames",
		"County":                 "Story",
		"Item Description":       "Vodka 80 Proof",
		"Bottles Sold":           int64(1),
		"Sale (Dollars)":         10.0,
		"Volume Sold (Liters)":   1.0,
		cleaner.ColMajorCategory: "Vodka",
		cleaner.ColYear:          int64(2022),
		cleaner.ColQuarter:       int64(3),
		cleaner.ColIsWeekend:     false,
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func feed(agg Aggregator, rows ...model.Row) Table {
	for _, row := range rows {
		agg.Add(row)
	}
	return agg.Result()
}

// ---- Ranked Table Tests ----

func TestTopCategoriesByRevenue_OrderAndLimit(t *testing.T) {
	table := feed(NewTopCategoriesByRevenue(2),
		cleanedRow(model.Row{cleaner.ColMajorCategory: "Vodka", "Sale (Dollars)": 50.0}),
		cleanedRow(model.Row{cleaner.ColMajorCategory: "Whiskey", "Sale (Dollars)": 120.0}),
		cleanedRow(model.Row{cleaner.ColMajorCategory: "Rum", "Sale (Dollars)": 80.0}),
		cleanedRow(model.Row{cleaner.ColMajorCategory: "Vodka", "Sale (Dollars)": 25.0}),
	)

	if table.RowCount() != 2 {
		t.Fatalf("RowCount() = %d, want 2 after limiting", table.RowCount())
	}
	if got := table.Rows[0][0]; got != "Whiskey" {
		t.Errorf("rank 1 = %v, want Whiskey", got)
	}
	if got := table.Rows[1][0]; got != "Rum" {
		t.Errorf("rank 2 = %v, want Rum", got)
	}
	if got := table.Rows[0][4]; got != 120.0 {
		t.Errorf("rank 1 revenue = %v, want 120", got)
	}
}

func TestRankedTable_TiesOrderByLabel(t *testing.T) {
	table := feed(NewTopCitiesByRevenue(0),
		cleanedRow(model.Row{"City": "Des Moines", "Sale (Dollars)": 40.0}),
		cleanedRow(model.Row{"City": "Ames", "Sale (Dollars)": 40.0}),
		cleanedRow(model.Row{"City": "Boone", "Sale (Dollars)": 40.0}),
	)

	var got []string
	for _, row := range table.Rows {
		got = append(got, row[0].(string))
	}
	want := []string{"Ames", "Boone", "Des Moines"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tied cities ordered %v, want %v", got, want)
	}
}

func TestRankedTable_NullKeyGroupsAsUnknown(t *testing.T) {
	table := feed(NewTopCountiesByRevenue(0),
		cleanedRow(model.Row{"County": nil, "Sale (Dollars)": 15.0}),
		cleanedRow(model.Row{"County": "Story", "Sale (Dollars)": 5.0}),
	)

	if got := table.Rows[0][0]; got != UnknownGroup {
		t.Errorf("rank 1 = %v, want %q for null county", got, UnknownGroup)
	}
}

func TestTopProductsByVolume_RanksByVolumeNotRevenue(t *testing.T) {
	table := feed(NewTopProductsByVolume(0),
		cleanedRow(model.Row{"Item Description": "Big Bottle", "Volume Sold (Liters)": 9.0, "Sale (Dollars)": 1.0}),
		cleanedRow(model.Row{"Item Description": "Pricey Minis", "Volume Sold (Liters)": 0.5, "Sale (Dollars)": 500.0}),
	)

	if got := table.Rows[0][0]; got != "Big Bottle" {
		t.Errorf("rank 1 = %v, want the higher-volume product", got)
	}
}

// ---- Overall Totals Tests ----

func TestOverallTotals(t *testing.T) {
	table := feed(NewOverallTotals(),
		cleanedRow(model.Row{
			"Date":                 time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
			"Bottles Sold":         int64(12),
			"Sale (Dollars)":       108.0,
			"Volume Sold (Liters)": 9.0,
		}),
		cleanedRow(model.Row{
			"Date":                 time.Date(2022, 11, 20, 0, 0, 0, 0, time.UTC),
			"Bottles Sold":         int64(3),
			"Sale (Dollars)":       27.0,
			"Volume Sold (Liters)": 2.25,
		}),
	)

	if table.RowCount() != 1 {
		t.Fatalf("RowCount() = %d, want 1", table.RowCount())
	}
	row := table.Rows[0]
	if row[0] != int64(2) {
		t.Errorf("transactions = %v, want 2", row[0])
	}
	if row[1] != int64(15) {
		t.Errorf("bottles = %v, want 15", row[1])
	}
	if row[2] != 11.25 {
		t.Errorf("volume = %v, want 11.25", row[2])
	}
	if row[3] != 135.0 {
		t.Errorf("revenue = %v, want 135", row[3])
	}
	if row[4] != time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("first date = %v, want 2022-03-01", row[4])
	}
	if row[5] != time.Date(2022, 11, 20, 0, 0, 0, 0, time.UTC) {
		t.Errorf("last date = %v, want 2022-11-20", row[5])
	}
}

func TestOverallTotals_NoDates(t *testing.T) {
	table := feed(NewOverallTotals(),
		cleanedRow(model.Row{"Date": nil}),
	)

	row := table.Rows[0]
	if row[4] != nil || row[5] != nil {
		t.Errorf("date bounds = %v, %v, want nil when no dates were seen", row[4], row[5])
	}
}

// ---- City Efficiency Tests ----

func TestCityEfficiency_RanksByRevenuePerTransaction(t *testing.T) {
	// Ames: 3 transactions, 30 total (10 each). Boone: 1 transaction, 25.
	table := feed(NewCityEfficiency(0),
		cleanedRow(model.Row{"City": "Ames", "Sale (Dollars)": 10.0}),
		cleanedRow(model.Row{"City": "Ames", "Sale (Dollars)": 10.0}),
		cleanedRow(model.Row{"City": "Ames", "Sale (Dollars)": 10.0}),
		cleanedRow(model.Row{"City": "Boone", "Sale (Dollars)": 25.0}),
	)

	if got := table.Rows[0][0]; got != "Boone" {
		t.Errorf("rank 1 = %v, want Boone despite lower total revenue", got)
	}
	if got := table.Rows[0][3]; got != 25.0 {
		t.Errorf("Boone revenue per transaction = %v, want 25", got)
	}
	if got := table.Rows[1][3]; got != 10.0 {
		t.Errorf("Ames revenue per transaction = %v, want 10", got)
	}
}

// ---- Weekday Split Tests ----

func TestWeekdaySales_Buckets(t *testing.T) {
	table := feed(NewWeekdaySales(),
		cleanedRow(model.Row{cleaner.ColIsWeekend: false, "Sale (Dollars)": 10.0}),
		cleanedRow(model.Row{cleaner.ColIsWeekend: false, "Sale (Dollars)": 30.0}),
		cleanedRow(model.Row{cleaner.ColIsWeekend: true, "Sale (Dollars)": 50.0}),
	)

	if table.RowCount() != 2 {
		t.Fatalf("RowCount() = %d, want 2 when every row classified", table.RowCount())
	}
	weekday, weekend := table.Rows[0], table.Rows[1]
	if weekday[0] != "weekday" || weekday[1] != int64(2) || weekday[3] != 40.0 {
		t.Errorf("weekday row = %v, want [weekday 2 _ 40 _]", weekday)
	}
	if weekday[4] != 20.0 {
		t.Errorf("weekday avg = %v, want 20", weekday[4])
	}
	if weekend[0] != "weekend" || weekend[1] != int64(1) || weekend[3] != 50.0 {
		t.Errorf("weekend row = %v, want [weekend 1 _ 50 _]", weekend)
	}
}

func TestWeekdaySales_UnknownBucketOnlyWhenPopulated(t *testing.T) {
	table := feed(NewWeekdaySales(),
		cleanedRow(model.Row{cleaner.ColIsWeekend: nil, "Sale (Dollars)": 5.0}),
		cleanedRow(model.Row{cleaner.ColIsWeekend: true, "Sale (Dollars)": 50.0}),
	)

	if table.RowCount() != 3 {
		t.Fatalf("RowCount() = %d, want 3 with an unknown bucket", table.RowCount())
	}
	unknown := table.Rows[2]
	if unknown[0] != "unknown" || unknown[1] != int64(1) {
		t.Errorf("unknown row = %v, want one unclassified transaction", unknown)
	}
}

// ---- Quarterly Trend Tests ----

func TestQuarterlyTrend_ChronologicalOrder(t *testing.T) {
	table := feed(NewQuarterlyTrend(),
		cleanedRow(model.Row{cleaner.ColYear: int64(2023), cleaner.ColQuarter: int64(1), "Sale (Dollars)": 7.0}),
		cleanedRow(model.Row{cleaner.ColYear: int64(2022), cleaner.ColQuarter: int64(4), "Sale (Dollars)": 9.0}),
		cleanedRow(model.Row{cleaner.ColYear: int64(2022), cleaner.ColQuarter: int64(2), "Sale (Dollars)": 3.0}),
		cleanedRow(model.Row{cleaner.ColYear: nil, cleaner.ColQuarter: nil}),
	)

	want := [][2]int64{{2022, 2}, {2022, 4}, {2023, 1}}
	if table.RowCount() != len(want) {
		t.Fatalf("RowCount() = %d, want %d (undated rows excluded)", table.RowCount(), len(want))
	}
	for i, yq := range want {
		if table.Rows[i][0] != yq[0] || table.Rows[i][1] != yq[1] {
			t.Errorf("row %d = %v/%v, want %d/Q%d", i, table.Rows[i][0], table.Rows[i][1], yq[0], yq[1])
		}
	}
}
