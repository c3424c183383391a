// pkg/report/aggregators.go
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/David-Botos/sales-pipeline/pkg/cleaner"
	"github.com/David-Botos/sales-pipeline/pkg/config"
	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// Source column names the aggregators read from cleaned rows
const (
	colDate        = "Date"
	colCity        = "City"
	colCounty      = "County"
	colItem        = "Item Description"
	colBottlesSold = "Bottles Sold"
	colSaleDollars = "Sale (Dollars)"
	colVolumeL     = "Volume Sold (Liters)"
)

// UnknownGroup is the bucket rows land in when their grouping value is null
const UnknownGroup = "(unknown)"

// Aggregator consumes cleaned rows one at a time and produces one report
// table. Requires lists the columns the aggregator cannot work without;
// the runner skips aggregators whose required columns are absent.
type Aggregator interface {
	Name() string
	Requires() []string
	Add(row model.Row)
	Result() Table
}

// DefaultAggregators returns the standard report set sized by config
func DefaultAggregators(cfg config.ReportConfig) []Aggregator {
	return []Aggregator{
		NewOverallTotals(),
		NewTopCategoriesByRevenue(cfg.TopCategories),
		NewTopProductsByRevenue(cfg.TopProducts),
		NewTopProductsByVolume(cfg.TopProducts),
		NewTopCountiesByRevenue(cfg.TopCounties),
		NewTopCitiesByRevenue(cfg.TopCities),
		NewCityEfficiency(cfg.TopCities),
		NewWeekdaySales(),
		NewQuarterlyTrend(),
	}
}

// groupStats accumulates the shared per-group metrics
type groupStats struct {
	transactions int64
	bottles      int64
	revenue      float64
	volumeLiters float64
}

func (g *groupStats) add(row model.Row) {
	g.transactions++
	g.bottles += intAt(row, colBottlesSold)
	g.revenue += floatAt(row, colSaleDollars)
	g.volumeLiters += floatAt(row, colVolumeL)
}

// Ranking metrics for grouped tables
type metric int

const (
	byRevenue metric = iota
	byVolume
	byBottles
)

func (m metric) value(g *groupStats) float64 {
	switch m {
	case byVolume:
		return g.volumeLiters
	case byBottles:
		return float64(g.bottles)
	default:
		return g.revenue
	}
}

func (m metric) column() string {
	switch m {
	case byVolume:
		return colVolumeL
	case byBottles:
		return colBottlesSold
	default:
		return colSaleDollars
	}
}

// rankedTable groups rows by one column and ranks the groups by a metric.
// Ties order by group label so results are deterministic.
type rankedTable struct {
	name   string
	key    string
	header string
	rank   metric
	limit  int
	groups map[string]*groupStats
}

func newRankedTable(name, key, header string, rank metric, limit int) *rankedTable {
	return &rankedTable{
		name:   name,
		key:    key,
		header: header,
		rank:   rank,
		limit:  limit,
		groups: make(map[string]*groupStats),
	}
}

func NewTopCategoriesByRevenue(limit int) Aggregator {
	return newRankedTable("top_categories_by_revenue", cleaner.ColMajorCategory, "Major Category", byRevenue, limit)
}

func NewTopProductsByRevenue(limit int) Aggregator {
	return newRankedTable("top_products_by_revenue", colItem, "Item Description", byRevenue, limit)
}

func NewTopProductsByVolume(limit int) Aggregator {
	return newRankedTable("top_products_by_volume", colItem, "Item Description", byVolume, limit)
}

func NewTopCountiesByRevenue(limit int) Aggregator {
	return newRankedTable("top_counties_by_revenue", colCounty, "County", byRevenue, limit)
}

func NewTopCitiesByRevenue(limit int) Aggregator {
	return newRankedTable("top_cities_by_revenue", colCity, "City", byRevenue, limit)
}

func (a *rankedTable) Name() string {
	return a.name
}

func (a *rankedTable) Requires() []string {
	return []string{a.key, a.rank.column()}
}

func (a *rankedTable) Add(row model.Row) {
	key := stringAt(row, a.key)
	if key == "" {
		key = UnknownGroup
	}
	stats := a.groups[key]
	if stats == nil {
		stats = &groupStats{}
		a.groups[key] = stats
	}
	stats.add(row)
}

func (a *rankedTable) Result() Table {
	keys := make([]string, 0, len(a.groups))
	for key := range a.groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, vj := a.rank.value(a.groups[keys[i]]), a.rank.value(a.groups[keys[j]])
		if vi != vj {
			return vi > vj
		}
		return keys[i] < keys[j]
	})
	if a.limit > 0 && len(keys) > a.limit {
		keys = keys[:a.limit]
	}

	rows := make([][]interface{}, 0, len(keys))
	for _, key := range keys {
		g := a.groups[key]
		rows = append(rows, []interface{}{key, g.transactions, g.bottles, g.volumeLiters, g.revenue})
	}
	return Table{
		Name:    a.name,
		Columns: []string{a.header, "Transactions", "Bottles Sold", "Volume (Liters)", "Revenue (Dollars)"},
		Rows:    rows,
	}
}

// overallTotals is the single-row whole-dataset summary
type overallTotals struct {
	stats     groupStats
	firstDate time.Time
	lastDate  time.Time
	hasDates  bool
}

func NewOverallTotals() Aggregator {
	return &overallTotals{}
}

func (a *overallTotals) Name() string {
	return "overall_totals"
}

func (a *overallTotals) Requires() []string {
	return nil
}

func (a *overallTotals) Add(row model.Row) {
	a.stats.add(row)
	if t, ok := timeAt(row, colDate); ok {
		if !a.hasDates || t.Before(a.firstDate) {
			a.firstDate = t
		}
		if !a.hasDates || t.After(a.lastDate) {
			a.lastDate = t
		}
		a.hasDates = true
	}
}

func (a *overallTotals) Result() Table {
	var first, last interface{}
	if a.hasDates {
		first, last = a.firstDate, a.lastDate
	}
	return Table{
		Name: "overall_totals",
		Columns: []string{
			"Transactions", "Bottles Sold", "Volume (Liters)", "Revenue (Dollars)",
			"First Date", "Last Date",
		},
		Rows: [][]interface{}{{
			a.stats.transactions, a.stats.bottles, a.stats.volumeLiters, a.stats.revenue,
			first, last,
		}},
	}
}

// cityEfficiency ranks cities by revenue per transaction
type cityEfficiency struct {
	limit  int
	groups map[string]*groupStats
}

func NewCityEfficiency(limit int) Aggregator {
	return &cityEfficiency{limit: limit, groups: make(map[string]*groupStats)}
}

func (a *cityEfficiency) Name() string {
	return "city_sales_efficiency"
}

func (a *cityEfficiency) Requires() []string {
	return []string{colCity, colSaleDollars}
}

func (a *cityEfficiency) Add(row model.Row) {
	key := stringAt(row, colCity)
	if key == "" {
		key = UnknownGroup
	}
	stats := a.groups[key]
	if stats == nil {
		stats = &groupStats{}
		a.groups[key] = stats
	}
	stats.add(row)
}

func (a *cityEfficiency) Result() Table {
	perTransaction := func(g *groupStats) float64 {
		if g.transactions == 0 {
			return 0
		}
		return g.revenue / float64(g.transactions)
	}

	keys := make([]string, 0, len(a.groups))
	for key := range a.groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, vj := perTransaction(a.groups[keys[i]]), perTransaction(a.groups[keys[j]])
		if vi != vj {
			return vi > vj
		}
		return keys[i] < keys[j]
	})
	if a.limit > 0 && len(keys) > a.limit {
		keys = keys[:a.limit]
	}

	rows := make([][]interface{}, 0, len(keys))
	for _, key := range keys {
		g := a.groups[key]
		rows = append(rows, []interface{}{key, g.transactions, g.revenue, perTransaction(g)})
	}
	return Table{
		Name:    "city_sales_efficiency",
		Columns: []string{"City", "Transactions", "Revenue (Dollars)", "Revenue per Transaction"},
		Rows:    rows,
	}
}

// weekdaySales splits sales into weekday and weekend buckets. Rows whose
// weekend flag is null land in an unknown bucket that is only emitted when
// populated.
type weekdaySales struct {
	weekday groupStats
	weekend groupStats
	unknown groupStats
}

func NewWeekdaySales() Aggregator {
	return &weekdaySales{}
}

func (a *weekdaySales) Name() string {
	return "weekday_weekend_sales"
}

func (a *weekdaySales) Requires() []string {
	return []string{cleaner.ColIsWeekend}
}

func (a *weekdaySales) Add(row model.Row) {
	weekend, ok := boolAt(row, cleaner.ColIsWeekend)
	switch {
	case !ok:
		a.unknown.add(row)
	case weekend:
		a.weekend.add(row)
	default:
		a.weekday.add(row)
	}
}

func (a *weekdaySales) Result() Table {
	avg := func(g groupStats) float64 {
		if g.transactions == 0 {
			return 0
		}
		return g.revenue / float64(g.transactions)
	}

	rows := [][]interface{}{
		{"weekday", a.weekday.transactions, a.weekday.bottles, a.weekday.revenue, avg(a.weekday)},
		{"weekend", a.weekend.transactions, a.weekend.bottles, a.weekend.revenue, avg(a.weekend)},
	}
	if a.unknown.transactions > 0 {
		rows = append(rows, []interface{}{"unknown", a.unknown.transactions, a.unknown.bottles, a.unknown.revenue, avg(a.unknown)})
	}
	return Table{
		Name: "weekday_weekend_sales",
		Columns: []string{
			"Day Type", "Transactions", "Bottles Sold", "Revenue (Dollars)",
			"Avg Revenue per Transaction",
		},
		Rows: rows,
	}
}

// quarterlyTrend groups sales by calendar quarter in chronological order.
// Rows without derived date parts are left out of the trend.
type quarterlyTrend struct {
	groups map[yearQuarter]*groupStats
}

type yearQuarter struct {
	year    int64
	quarter int64
}

func NewQuarterlyTrend() Aggregator {
	return &quarterlyTrend{groups: make(map[yearQuarter]*groupStats)}
}

func (a *quarterlyTrend) Name() string {
	return "quarterly_sales_trend"
}

func (a *quarterlyTrend) Requires() []string {
	return []string{cleaner.ColYear, cleaner.ColQuarter}
}

func (a *quarterlyTrend) Add(row model.Row) {
	year, yearOK := int64At(row, cleaner.ColYear)
	quarter, quarterOK := int64At(row, cleaner.ColQuarter)
	if !yearOK || !quarterOK {
		return
	}
	key := yearQuarter{year: year, quarter: quarter}
	stats := a.groups[key]
	if stats == nil {
		stats = &groupStats{}
		a.groups[key] = stats
	}
	stats.add(row)
}

func (a *quarterlyTrend) Result() Table {
	keys := make([]yearQuarter, 0, len(a.groups))
	for key := range a.groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].quarter < keys[j].quarter
	})

	rows := make([][]interface{}, 0, len(keys))
	for _, key := range keys {
		g := a.groups[key]
		rows = append(rows, []interface{}{key.year, key.quarter, g.transactions, g.bottles, g.revenue})
	}
	return Table{
		Name:    "quarterly_sales_trend",
		Columns: []string{"Year", "Quarter", "Transactions", "Bottles Sold", "Revenue (Dollars)"},
		Rows:    rows,
	}
}

// ---- Row accessors ----
// Cleaned rows carry typed values or nil; accessors fall back to zero values
// so a null cell never breaks an aggregate.

func stringAt(row model.Row, column string) string {
	switch v := row[column].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intAt(row model.Row, column string) int64 {
	n, _ := int64At(row, column)
	return n
}

func int64At(row model.Row, column string) (int64, bool) {
	v, ok := row[column].(int64)
	return v, ok
}

func floatAt(row model.Row, column string) float64 {
	switch v := row[column].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func boolAt(row model.Row, column string) (bool, bool) {
	v, ok := row[column].(bool)
	return v, ok
}

func timeAt(row model.Row, column string) (time.Time, bool) {
	v, ok := row[column].(time.Time)
	return v, ok
}
