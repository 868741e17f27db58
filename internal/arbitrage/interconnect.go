package arbitrage

import "powerarb/internal/config"

// Route identifies a directed interconnection between two bidding zones.
type Route struct {
	From string
	To   string
}

// Link describes one cross-border interconnection. Capacity is the maximum
// flow in MW; a zero capacity means there is no direct link and the route is
// excluded from arbitrage. TransportCost is in EUR per MWh.
type Link struct {
	Capacity      float64
	TransportCost float64
}

// Interconnections maps directed routes to their link parameters.
type Interconnections map[Route]Link

// Completed returns a copy of the table with every missing reverse route
// filled in from its forward counterpart. Costs are assumed symmetric.
func (in Interconnections) Completed() Interconnections {
	out := make(Interconnections, len(in)*2)
	for route, link := range in {
		out[route] = link
	}
	for route, link := range in {
		reverse := Route{From: route.To, To: route.From}
		if _, ok := out[reverse]; !ok {
			out[reverse] = link
		}
	}
	return out
}

// InterconnectionsFromConfig builds the table from configured links and
// mirrors any missing reverse routes.
func InterconnectionsFromConfig(links []config.LinkConfig) Interconnections {
	table := make(Interconnections, len(links))
	for _, l := range links {
		table[Route{From: l.From, To: l.To}] = Link{
			Capacity:      l.CapacityMW,
			TransportCost: l.TransportCostEUR,
		}
	}
	return table.Completed()
}

// DefaultInterconnections returns the reference Western European table used
// when no table is configured. Zero-capacity entries document country pairs
// with no direct link (flows would have to transit a third zone).
func DefaultInterconnections() Interconnections {
	return Interconnections{
		{From: "FR", To: "DE"}: {Capacity: 3000, TransportCost: 2.5},
		{From: "FR", To: "ES"}: {Capacity: 2800, TransportCost: 3.0},
		{From: "FR", To: "IT"}: {Capacity: 3200, TransportCost: 3.5},
		{From: "FR", To: "GB"}: {Capacity: 2000, TransportCost: 4.0},
		{From: "DE", To: "ES"}: {Capacity: 0, TransportCost: 10},
		{From: "DE", To: "IT"}: {Capacity: 0, TransportCost: 10},
		{From: "ES", To: "IT"}: {Capacity: 0, TransportCost: 10},
		{From: "ES", To: "GB"}: {Capacity: 0, TransportCost: 10},
		{From: "IT", To: "GB"}: {Capacity: 0, TransportCost: 10},
		{From: "GB", To: "DE"}: {Capacity: 0, TransportCost: 10},
	}.Completed()
}
