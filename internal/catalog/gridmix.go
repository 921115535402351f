package catalog

// GridMix is a region's fixed generation shares, used by the Carbon Model
// (§4.E) to synthesize a gCO2/kWh reading from live weather. Wind/solar
// are capacity ceilings scaled by live capacity factors; Gas fills
// whatever the clean sources and coal don't cover.
type GridMix struct {
	Nuclear  float64
	Hydro    float64
	WindMax  float64
	SolarMax float64
	CoalBase float64
	GasBase  float64
}

// GridMixes holds the grid composition for every region that does not have
// a live carbon-intensity API. uksouth has none here: it always reads
// from the UK Carbon Intensity API (§4.B) and never falls back to this
// model except when that API is unreachable, in which case it uses the
// 100 gCO2/kWh ("low") default per §7 error kind 2.
//
// Source composition (France: nuclear/hydro-heavy; Netherlands: gas-heavy
// with growing wind/solar), reproduced from the NERVE carbon model's
// grid-mix table.
var GridMixes = map[string]GridMix{
	"francecentral": {
		Nuclear:  0.70,
		Hydro:    0.12,
		WindMax:  0.10,
		SolarMax: 0.05,
		GasBase:  0.08,
	},
	"westeurope": {
		Nuclear:  0.03,
		Hydro:    0.00,
		WindMax:  0.22,
		SolarMax: 0.12,
		CoalBase: 0.05,
		GasBase:  0.52,
	},
}

// EmissionFactors are gCO2/kWh per generation source (§4.E).
var EmissionFactors = map[string]float64{
	"nuclear": 12,
	"hydro":   24,
	"wind":    11,
	"solar":   45,
	"gas":     490,
	"coal":    820,
	"biomass": 230,
	"other":   300,
}
