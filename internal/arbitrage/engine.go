package arbitrage

import (
	"log/slog"
	"sort"
	"time"

	"powerarb/internal/config"
	"powerarb/internal/model"
)

// Engine holds the logic for identifying cross-border arbitrage opportunities.
type Engine struct {
	logger *slog.Logger
	inter  Interconnections
	cfg    *config.ArbitrageConfig

	// last result of CalculateAll, served by the query methods
	opportunities []model.Opportunity

	now func() time.Time
}

// MarginSummary aggregates the opportunities falling inside a forward window.
type MarginSummary struct {
	TotalMargin float64
	Count       int
	AvgMargin   float64
	PeriodHours int
}

// CountryStat aggregates realized opportunity value for one country.
type CountryStat struct {
	Country      string
	TotalGain    float64
	AvgNetSpread float64
}

// NewEngine creates a new Engine over the given interconnection table.
func NewEngine(logger *slog.Logger, inter Interconnections, cfg *config.ArbitrageConfig) *Engine {
	return &Engine{
		logger: logger,
		inter:  inter,
		cfg:    cfg,
		now:    time.Now,
	}
}

// CalculateAll computes every arbitrage opportunity across all country pairs
// with a usable interconnection, sorted by total gain descending. The result
// is cached for the query methods and is a pure function of the input: pairs
// without a registered link or with zero capacity are silently skipped, and
// only hours where both series have a price are considered.
func (e *Engine) CalculateAll(prices map[string]model.PriceSeries) []model.Opportunity {
	countries := make([]string, 0, len(prices))
	for code := range prices {
		countries = append(countries, code)
	}
	sort.Strings(countries)

	var all []model.Opportunity
	for _, from := range countries {
		for _, to := range countries {
			if from == to {
				continue
			}
			link, ok := e.inter[Route{From: from, To: to}]
			if !ok || link.Capacity == 0 {
				continue
			}
			all = append(all, e.pairOpportunities(from, to, prices[from], prices[to], link)...)
		}
	}

	// Best gain first; stable so equal gains keep pair order
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].TotalGain > all[j].TotalGain
	})

	e.opportunities = all
	e.logger.Debug("Engine: opportunities calculated", "count", len(all))
	return all
}

// pairOpportunities joins the two series on timestamp and keeps the hours
// whose net spread clears the minimum profitability gate.
func (e *Engine) pairOpportunities(from, to string, buy, sell model.PriceSeries, link Link) []model.Opportunity {
	// Both series are timestamp-ascending, so an inner join is a single merge pass.
	var opps []model.Opportunity
	i, j := 0, 0
	for i < len(buy) && j < len(sell) {
		switch {
		case buy[i].Timestamp.Before(sell[j].Timestamp):
			i++
		case sell[j].Timestamp.Before(buy[i].Timestamp):
			j++
		default:
			gross := sell[j].Price - buy[i].Price
			net := gross - link.TransportCost
			if net > e.cfg.MinNetSpreadEUR {
				volume := link.Capacity / 1000 // MW -> MWh per hourly transaction
				if volume > e.cfg.MaxVolumePerTradeMWh {
					volume = e.cfg.MaxVolumePerTradeMWh
				}
				opps = append(opps, model.Opportunity{
					From:          from,
					To:            to,
					Timestamp:     buy[i].Timestamp,
					BuyPrice:      buy[i].Price,
					SellPrice:     sell[j].Price,
					GrossSpread:   gross,
					TransportCost: link.TransportCost,
					NetSpread:     net,
					Volume:        volume,
					TotalGain:     net * volume,
					Score:         scoreSpread(net),
				})
			}
			i++
			j++
		}
	}
	return opps
}

// scoreSpread buckets a net spread into the four quality tiers.
func scoreSpread(netSpread float64) float64 {
	switch {
	case netSpread < 5:
		return 0
	case netSpread < 10:
		return 50
	case netSpread < 15:
		return 75
	default:
		return 100
	}
}

// TopOpportunities returns at most n opportunities with score >= minScore,
// in total-gain order.
func (e *Engine) TopOpportunities(n int, minScore float64) []model.Opportunity {
	if n <= 0 {
		return nil
	}
	var top []model.Opportunity
	for _, opp := range e.opportunities {
		if opp.Score < minScore {
			continue
		}
		top = append(top, opp)
		if len(top) == n {
			break
		}
	}
	return top
}

// BestOpportunity returns the single highest-gain opportunity from the last
// calculation. The second return is false when there are none.
func (e *Engine) BestOpportunity() (model.Opportunity, bool) {
	if len(e.opportunities) == 0 {
		return model.Opportunity{}, false
	}
	return e.opportunities[0], true
}

// PotentialMargin sums the opportunities whose delivery hour falls within
// the next `hours` hours.
func (e *Engine) PotentialMargin(hours int) MarginSummary {
	now := e.now()
	until := now.Add(time.Duration(hours) * time.Hour)

	summary := MarginSummary{PeriodHours: hours}
	var spreadSum float64
	for _, opp := range e.opportunities {
		if opp.Timestamp.Before(now) || opp.Timestamp.After(until) {
			continue
		}
		summary.TotalMargin += opp.TotalGain
		spreadSum += opp.NetSpread
		summary.Count++
	}
	if summary.Count > 0 {
		summary.AvgMargin = spreadSum / float64(summary.Count)
	}
	return summary
}

// CountryStats aggregates the last calculation per buy country and per sell
// country, each sorted by total gain descending.
func (e *Engine) CountryStats() (buy, sell []CountryStat) {
	return aggregateByCountry(e.opportunities, func(o model.Opportunity) string { return o.From }),
		aggregateByCountry(e.opportunities, func(o model.Opportunity) string { return o.To })
}

func aggregateByCountry(opps []model.Opportunity, key func(model.Opportunity) string) []CountryStat {
	gains := make(map[string]float64)
	spreads := make(map[string]float64)
	counts := make(map[string]int)
	for _, opp := range opps {
		c := key(opp)
		gains[c] += opp.TotalGain
		spreads[c] += opp.NetSpread
		counts[c]++
	}

	stats := make([]CountryStat, 0, len(gains))
	for c, gain := range gains {
		stats = append(stats, CountryStat{
			Country:      c,
			TotalGain:    gain,
			AvgNetSpread: spreads[c] / float64(counts[c]),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].TotalGain != stats[j].TotalGain {
			return stats[i].TotalGain > stats[j].TotalGain
		}
		return stats[i].Country < stats[j].Country
	})
	return stats
}
