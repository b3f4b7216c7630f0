package thermal

import (
	"math"
	"strconv"
)

// WellGeometry holds the properties used to turn a Péclet number into a flow
// rate.
type WellGeometry struct {
	Lw  float64 `json:"lw" yaml:"lw"`   // thermal conductivity of the formation, W/(m·K)
	Rw  float64 `json:"rw" yaml:"rw"`   // well radius, m
	Cw  float64 `json:"cw" yaml:"cw"`   // heat capacity of water, J/(kg·K)
	Row float64 `json:"row" yaml:"row"` // density of water, kg/m³
}

// DefaultGeometry returns the geometry of the reference well.
func DefaultGeometry() WellGeometry {
	return WellGeometry{Lw: 0.6, Rw: 0.1, Cw: 4200, Row: 1000}
}

// Debit converts pe into a volumetric flow rate in m³/day.
func Debit(pe float64, g WellGeometry) float64 {
	return 24 * 3600 * (pe * g.Lw * math.Pi * g.Rw) / (g.Cw * g.Row)
}

// Debits converts every value of peList.
func Debits(peList []float64, g WellGeometry) []float64 {
	out := make([]float64, len(peList))
	for i, pe := range peList {
		out[i] = Debit(pe, g)
	}
	return out
}

// RoundMantissa formats v in exponent notation with five digits after the
// decimal point.
func RoundMantissa(v float64) string {
	return strconv.FormatFloat(v, 'e', 5, 64)
}
