// Package backtest replays the "trade the predicted extremes" strategy
// against realized day-ahead prices: each day the five cheapest-predicted
// hours are bought and the five dearest-predicted hours are sold, and every
// action is scored against the day's mean realized price.
package backtest

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"powerarb/internal/model"
)

// Minimum data volumes below which a replay is reported unavailable.
const (
	minHours       = 24
	minHoursPerDay = 10
	actionsPerSide = 5
)

// ActionKind distinguishes the two sides of a simulated trade.
type ActionKind string

const (
	ActionBuy  ActionKind = "BUY"
	ActionSell ActionKind = "SELL"
)

// Row is one aligned hour of the historical log: the prediction that was
// recorded for this hour at prediction time, and the price later observed.
type Row struct {
	Timestamp time.Time
	Predicted float64
	Actual    float64
}

// RowsFromTimeline extracts the replayable hours from a unified timeline:
// those with both a realized price and a historical prediction.
func RowsFromTimeline(points []model.TimelinePoint) []Row {
	var rows []Row
	for _, p := range points {
		if p.ActualPrice == nil || p.HistoricalPredicted == nil {
			continue
		}
		rows = append(rows, Row{
			Timestamp: p.Timestamp,
			Predicted: *p.HistoricalPredicted,
			Actual:    *p.ActualPrice,
		})
	}
	return rows
}

// Action is one simulated trade.
type Action struct {
	Date      time.Time
	Timestamp time.Time
	Kind      ActionKind
	Predicted float64
	Actual    float64
	PnL       float64
	Success   bool
}

// DayResult is the aggregate P&L of one replayed day.
type DayResult struct {
	Date    time.Time
	PnL     float64
	BuyPnL  float64
	SellPnL float64
	Actions int
}

// Report is the full outcome of a replay. Available is false when there is
// not enough data to replay anything; callers branch on it rather than on an
// error, and Message explains why.
type Report struct {
	Available bool
	Message   string

	TotalPnL      float64
	CumulativePnL []float64
	Dates         []time.Time
	DailyPnL      []float64

	WinRate     float64
	AvgWin      float64
	AvgLoss     float64
	SharpeRatio float64

	TotalDays   int
	WinningDays int
	LosingDays  int

	ActionSuccessRate float64
	TotalActions      int
	SuccessfulActions int

	// Details holds the most recent 10 actions for audit display.
	Details []Action

	BestDay  DayResult
	WorstDay DayResult
}

// Replayer runs strategy replays over historical prediction logs.
type Replayer struct {
	logger *slog.Logger
}

// NewReplayer creates a new Replayer.
func NewReplayer(logger *slog.Logger) *Replayer {
	return &Replayer{logger: logger}
}

// Run replays the strategy over the full log. Days contributing fewer than
// 10 aligned hours are skipped entirely, never zero-filled.
func (r *Replayer) Run(rows []Row) Report {
	if len(rows) < minHours {
		return unavailable(fmt.Sprintf("only %dh of aligned data, need at least %dh", len(rows), minHours))
	}

	days, order := groupByDay(rows)

	var (
		results []DayResult
		details []Action
	)
	for _, date := range order {
		dayRows := days[date]
		if len(dayRows) < minHoursPerDay {
			continue
		}
		result, actions := replayDay(date, dayRows)
		results = append(results, result)
		details = append(details, actions...)
	}

	if len(results) == 0 {
		return unavailable("no day in the window has enough complete hours")
	}

	report := summarize(results, details)
	r.logger.Info("Replayer: backtest complete",
		"days", report.TotalDays,
		"totalPnL", report.TotalPnL,
		"winRate", report.WinRate,
	)
	return report
}

func unavailable(reason string) Report {
	return Report{Available: false, Message: reason}
}

// groupByDay buckets rows by calendar date, preserving input order inside a
// bucket, and returns the dates in chronological order.
func groupByDay(rows []Row) (map[time.Time][]Row, []time.Time) {
	days := make(map[time.Time][]Row)
	var order []time.Time
	for _, row := range rows {
		y, m, d := row.Timestamp.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, row.Timestamp.Location())
		if _, seen := days[date]; !seen {
			order = append(order, date)
		}
		days[date] = append(days[date], row)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	return days, order
}

// replayDay selects the day's actions and scores them against the mean
// realized price over ALL of the day's hours, not just the selected ones.
func replayDay(date time.Time, dayRows []Row) (DayResult, []Action) {
	var sum float64
	for _, row := range dayRows {
		sum += row.Actual
	}
	dayMean := sum / float64(len(dayRows))

	result := DayResult{Date: date}
	var actions []Action

	for _, row := range selectExtremes(dayRows, actionsPerSide, false) {
		pnl := dayMean - row.Actual
		result.BuyPnL += pnl
		actions = append(actions, Action{
			Date:      date,
			Timestamp: row.Timestamp,
			Kind:      ActionBuy,
			Predicted: row.Predicted,
			Actual:    row.Actual,
			PnL:       pnl,
			Success:   pnl > 0,
		})
	}
	for _, row := range selectExtremes(dayRows, actionsPerSide, true) {
		pnl := row.Actual - dayMean
		result.SellPnL += pnl
		actions = append(actions, Action{
			Date:      date,
			Timestamp: row.Timestamp,
			Kind:      ActionSell,
			Predicted: row.Predicted,
			Actual:    row.Actual,
			PnL:       pnl,
			Success:   pnl > 0,
		})
	}

	result.PnL = result.BuyPnL + result.SellPnL
	result.Actions = len(actions)
	return result, actions
}

// selectExtremes returns the n rows with the smallest (or largest) predicted
// price. The sort is stable, so ties keep input row order.
func selectExtremes(rows []Row, n int, largest bool) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if largest {
			return sorted[i].Predicted > sorted[j].Predicted
		}
		return sorted[i].Predicted < sorted[j].Predicted
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

func summarize(results []DayResult, details []Action) Report {
	report := Report{
		Available: true,
		TotalDays: len(results),
		BestDay:   results[0],
		WorstDay:  results[0],
	}

	var winSum, lossSum float64
	var negativeDays int
	for _, day := range results {
		report.TotalPnL += day.PnL
		report.CumulativePnL = append(report.CumulativePnL, report.TotalPnL)
		report.Dates = append(report.Dates, day.Date)
		report.DailyPnL = append(report.DailyPnL, day.PnL)

		if day.PnL > 0 {
			report.WinningDays++
			winSum += day.PnL
		}
		if day.PnL < 0 {
			negativeDays++
			lossSum += day.PnL
		}
		if day.PnL > report.BestDay.PnL {
			report.BestDay = day
		}
		if day.PnL < report.WorstDay.PnL {
			report.WorstDay = day
		}
	}
	// LosingDays counts every non-winning day, but the loss average is taken
	// over strictly negative days so zero-PnL days cannot dilute it.
	report.LosingDays = report.TotalDays - report.WinningDays
	report.WinRate = float64(report.WinningDays) / float64(report.TotalDays) * 100
	if report.WinningDays > 0 {
		report.AvgWin = winSum / float64(report.WinningDays)
	}
	if negativeDays > 0 {
		report.AvgLoss = lossSum / float64(negativeDays)
	}
	report.SharpeRatio = sharpe(report.DailyPnL)

	report.TotalActions = len(details)
	for _, action := range details {
		if action.Success {
			report.SuccessfulActions++
		}
	}
	if report.TotalActions > 0 {
		report.ActionSuccessRate = float64(report.SuccessfulActions) / float64(report.TotalActions) * 100
	}
	if len(details) > 10 {
		details = details[len(details)-10:]
	}
	report.Details = details

	return report
}

// sharpe is mean over sample standard deviation of the daily P&L, 0 when the
// deviation is 0.
func sharpe(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	var sum float64
	for _, v := range daily {
		sum += v
	}
	mean := sum / float64(len(daily))

	var sq float64
	for _, v := range daily {
		sq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sq / float64(len(daily)-1))
	if std == 0 {
		return 0
	}
	return mean / std
}
