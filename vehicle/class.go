// Package vehicle holds the canonical vehicle taxonomy shared by the
// detector, camera worker, and state store: class weights, congestion
// thresholds, and the synonym table that normalizes whatever label a
// detector produces onto one of the five known classes.
package vehicle

// Class is one of the five vehicle categories the intersection cares
// about. Anything a detector reports that doesn't map onto one of these
// is dropped by the Normalizer, not treated as an error.
type Class string

const (
	Car       Class = "car"
	Truck     Class = "truck"
	Bus       Class = "bus"
	Ambulance Class = "ambulance"
	Mototaxi  Class = "mototaxi"
)

// Weight is the per-class contribution to a camera's weighted total.
var Weight = map[Class]float64{
	Car:       1.0,
	Mototaxi:  0.7,
	Bus:       4.0,
	Truck:     5.0,
	Ambulance: 10.0,
}

// CongestionLevel buckets a weighted total into a coarse category used
// for both dashboard display and green-time computation.
type CongestionLevel string

const (
	CongestionLow    CongestionLevel = "low"
	CongestionMedium CongestionLevel = "medium"
	CongestionHigh   CongestionLevel = "high"
)

// Thresholds holds the weighted-total cutoffs between congestion
// levels. The zero value is invalid; use DefaultThresholds.
type Thresholds struct {
	LowMax    float64
	MediumMax float64
}

// DefaultThresholds: below 8 is low, below 25 is medium, anything
// else is high.
var DefaultThresholds = Thresholds{LowMax: 8, MediumMax: 25}

// WeightedTotal sums counts[class] * Weight[class] across known
// classes. Unknown keys (there shouldn't be any once counts have been
// through a Normalizer) are ignored.
func WeightedTotal(counts map[Class]int) float64 {
	var total float64
	for class, n := range counts {
		w, ok := Weight[class]
		if !ok {
			continue
		}
		total += w * float64(n)
	}
	return total
}

// Congestion classifies a weighted total using t.
func Congestion(total float64, t Thresholds) CongestionLevel {
	switch {
	case total < t.LowMax:
		return CongestionLow
	case total < t.MediumMax:
		return CongestionMedium
	default:
		return CongestionHigh
	}
}

// Rank gives congestion levels a total order so a signal controller can
// compare two cameras' congestion without a switch statement at every
// call site.
func (l CongestionLevel) Rank() int {
	switch l {
	case CongestionLow:
		return 0
	case CongestionMedium:
		return 1
	case CongestionHigh:
		return 2
	default:
		return -1
	}
}
