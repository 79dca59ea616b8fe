package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		label string
		want  Class
		ok    bool
	}{
		{"car", Car, true},
		{"Car", Car, true},
		{"sedan", Car, true},
		{"coche", Car, true},
		{"carro", Car, true},
		{"camion", Truck, true},
		{"autobus", Bus, true},
		{"omnibus", Bus, true},
		{"moto", Mototaxi, true},
		{"motorcycle", Mototaxi, true},
		{"ambulancia", Ambulance, true},
		{"ambulance", Ambulance, true},
		{"moto_taxi", Mototaxi, true},
		{"bus", Bus, true},
		{"truck", Truck, true},
		{"  TRUCK  ", Truck, true},
		{"bicycle", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := n.Normalize(tt.label)
		assert.Equal(t, tt.ok, ok, "label %q", tt.label)
		if tt.ok {
			assert.Equal(t, tt.want, got, "label %q", tt.label)
		}
	}
}

func TestNormalizer_NormalizeCounts(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]int{"car": 2, "sedan": 1, "bicycle": 3}

	counts, dropped := n.NormalizeCounts(raw)

	assert.Equal(t, 3, counts[Car])
	assert.Equal(t, 3, dropped)
}
