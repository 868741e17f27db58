// Package analysis classifies the supply/demand balance of a power market.
package analysis

// TensionLevel grades the market balance from critical deficit to heavy surplus.
type TensionLevel string

const (
	TensionCritical    TensionLevel = "CRITICAL"
	TensionHigh        TensionLevel = "HIGH_TENSION"
	TensionModerate    TensionLevel = "TENSION"
	TensionBalanced    TensionLevel = "BALANCED"
	TensionSurplus     TensionLevel = "SURPLUS"
	TensionHighSurplus TensionLevel = "HIGH_SURPLUS"
)

// Tension describes a market tension level and its trading implications.
type Tension struct {
	Level        TensionLevel
	Description  string
	PriceImpact  string
	TraderAction string
}

// Gap returns production minus load in MW. Positive means surplus.
func Gap(productionMW, loadMW float64) float64 {
	return productionMW - loadMW
}

// ReserveMargin returns the reserve margin in percent: the surplus relative
// to load. Zero load yields 0 rather than a division by zero.
func ReserveMargin(productionMW, loadMW float64) float64 {
	if loadMW == 0 {
		return 0
	}
	return (productionMW - loadMW) / loadMW * 100
}

// Classify maps a reserve margin (percent) onto a tension level.
func Classify(reserveMargin float64) Tension {
	switch {
	case reserveMargin < -5:
		return Tension{
			Level:        TensionCritical,
			Description:  "critical deficit, blackout risk",
			PriceImpact:  "prices spiking (+50% or more)",
			TraderAction: "do not buy, wait for the market to normalize",
		}
	case reserveMargin < -2:
		return Tension{
			Level:        TensionHigh,
			Description:  "strong tension, large deficit",
			PriceImpact:  "prices very high (+30%)",
			TraderAction: "buy only if urgent, prices will stay elevated",
		}
	case reserveMargin < 0:
		return Tension{
			Level:        TensionModerate,
			Description:  "slight deficit",
			PriceImpact:  "prices elevated (+10-20%)",
			TraderAction: "monitor, buy if needed",
		}
	case reserveMargin < 5:
		return Tension{
			Level:        TensionBalanced,
			Description:  "normal balance",
			PriceImpact:  "prices normal",
			TraderAction: "normal buying conditions",
		}
	case reserveMargin < 10:
		return Tension{
			Level:        TensionSurplus,
			Description:  "moderate surplus",
			PriceImpact:  "prices favorable (-10%)",
			TraderAction: "good time to buy",
		}
	default:
		return Tension{
			Level:        TensionHighSurplus,
			Description:  "large surplus",
			PriceImpact:  "prices very low (-20% or more), negative prices possible",
			TraderAction: "excellent time to buy",
		}
	}
}
