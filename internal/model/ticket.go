package model

import "time"

// WeightTolerance is the accepted arithmetic error, in kg, between the OCR'd
// net weight and gross - tare.
const WeightTolerance = 10

// WeightTicket holds the fields extracted from one weighbridge ticket OCR text.
type WeightTicket struct {
	TicketNumber  string    `json:"ticket_number"`
	VehicleNumber string    `json:"vehicle_number"`
	GrossWeight   int       `json:"gross_weight"`
	TareWeight    int       `json:"tare_weight"`
	NetWeight     int       `json:"net_weight"`
	ParsedAt      time.Time `json:"parsed_at"`
	WeightValid   bool      `json:"is_weight_valid"`
}

// CheckWeights verifies gross - tare = net within WeightTolerance and records
// the outcome on the ticket.
func (t *WeightTicket) CheckWeights() {
	expected := t.GrossWeight - t.TareWeight
	if expected < 0 {
		expected = -expected
	}
	diff := t.NetWeight - expected
	if diff < 0 {
		diff = -diff
	}
	t.WeightValid = diff <= WeightTolerance
}
