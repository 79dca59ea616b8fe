package vehicle

import "strings"

// synonyms maps the label strings a detection model might emit onto a
// canonical Class. Detector output is not standardized across model
// versions, so this table is the single place that knowledge lives.
var synonyms = map[string]Class{
	"car":        Car,
	"sedan":      Car,
	"coupe":      Car,
	"auto":       Car,
	"coche":      Car,
	"carro":      Car,
	"truck":      Truck,
	"camion":     Truck,
	"lorry":      Truck,
	"pickup":     Truck,
	"bus":        Bus,
	"autobus":    Bus,
	"omnibus":    Bus,
	"coach":      Bus,
	"ambulance":  Ambulance,
	"ambulancia": Ambulance,
	"moto":       Mototaxi,
	"motorcycle": Mototaxi,
	"mototaxi":   Mototaxi,
	"moto_taxi":  Mototaxi,
	"tuk_tuk":    Mototaxi,
	"tuktuk":     Mototaxi,
}

// Normalizer turns raw detector label strings into canonical Classes.
// It is stateless and safe for concurrent use.
type Normalizer struct{}

// NewNormalizer returns a ready-to-use Normalizer.
func NewNormalizer() Normalizer { return Normalizer{} }

// Normalize maps a raw label onto a Class. The second return value is
// false when the label has no known mapping; callers should drop the
// detection rather than counting it under a fabricated class.
//
// Normalize is idempotent: passing an already-canonical class name
// back in returns the same class unchanged.
func (Normalizer) Normalize(label string) (Class, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if c, ok := synonyms[key]; ok {
		return c, true
	}
	switch Class(key) {
	case Car, Truck, Bus, Ambulance, Mototaxi:
		return Class(key), true
	}
	return "", false
}

// NormalizeCounts rebuilds a counts map with every key passed through
// Normalize, merging counts that collapse onto the same canonical
// class and dropping labels with no mapping. It returns the number of
// detections dropped so callers can feed it into a metric.
func (n Normalizer) NormalizeCounts(raw map[string]int) (map[Class]int, int) {
	out := make(map[Class]int, len(raw))
	dropped := 0
	for label, count := range raw {
		class, ok := n.Normalize(label)
		if !ok {
			dropped += count
			continue
		}
		out[class] += count
	}
	return out, dropped
}
