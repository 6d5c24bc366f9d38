package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightTicket_CheckWeights(t *testing.T) {
	cases := []struct {
		name              string
		gross, tare, net  int
		valid             bool
	}{
		{"exact", 14080, 8500, 5580, true},
		{"within tolerance", 14080, 8500, 5590, true},
		{"beyond tolerance", 14080, 8500, 5591, false},
		{"swapped operands", 8500, 14080, 5580, true},
		{"all zero", 0, 0, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := &WeightTicket{GrossWeight: tc.gross, TareWeight: tc.tare, NetWeight: tc.net}
			tk.CheckWeights()
			assert.Equal(t, tc.valid, tk.WeightValid)
		})
	}
}
