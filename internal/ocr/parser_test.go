package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTicket = `
계근표번호: T-2024-001
차량번호: 12가3456
총중량: 14,080 kg
공차중량: 8,500 kg
실중량: 5,580 kg
날짜: 2024-01-15
`

func TestParse_FullTicket(t *testing.T) {
	res := Parse(sampleTicket)
	require.True(t, res.Success())

	tk := res.Ticket
	assert.Equal(t, "T-2024-001", tk.TicketNumber)
	assert.Equal(t, "12가3456", tk.VehicleNumber)
	assert.Equal(t, 14080, tk.GrossWeight)
	assert.Equal(t, 8500, tk.TareWeight)
	assert.Equal(t, 5580, tk.NetWeight)
	assert.True(t, tk.WeightValid)
}

func TestParse_EnglishLabels(t *testing.T) {
	res := Parse(`
전표번호: T-2024-002
차 번호: 서울78나9012
Gross: 18500kg
Tare: 9200kg
Net: 9300kg
`)
	require.True(t, res.Success())

	tk := res.Ticket
	assert.Equal(t, "T-2024-002", tk.TicketNumber)
	assert.Equal(t, "서울78나9012", tk.VehicleNumber)
	assert.Equal(t, 18500, tk.GrossWeight)
	assert.Equal(t, 9200, tk.TareWeight)
	assert.Equal(t, 9300, tk.NetWeight)
	assert.True(t, tk.WeightValid)
}

func TestParse_EmptyText(t *testing.T) {
	res := Parse("   \n  ")
	assert.False(t, res.Success())
	require.Error(t, res.Err)
}

func TestParse_MissingLabelsUsesDefaults(t *testing.T) {
	res := Parse("알 수 없는 내용")
	require.True(t, res.Success())
	assert.Equal(t, "UNKNOWN", res.Ticket.VehicleNumber)
	assert.Equal(t, "0000", res.Ticket.TicketNumber)
}

func TestParse_DerivesNetFromGrossAndTare(t *testing.T) {
	res := Parse(`
총중량: 14,080 kg
공차중량: 8,500 kg
`)
	require.True(t, res.Success())
	assert.Equal(t, 5580, res.Ticket.NetWeight)
	assert.True(t, res.Ticket.WeightValid)
}

func TestParse_DerivesGrossFromTareAndNet(t *testing.T) {
	res := Parse(`
Tare: 9200kg
Net: 9300kg
`)
	require.True(t, res.Success())
	assert.Equal(t, 18500, res.Ticket.GrossWeight)
}

func TestParse_MagnitudeCorrection(t *testing.T) {
	// Labels misread so the values land on the wrong fields. The magnitudes
	// still identify which is which.
	res := Parse(`
총중량: 5,580 kg
공차중량: 14,080 kg
실중량: 8,500 kg
`)
	require.True(t, res.Success())
	assert.Equal(t, 14080, res.Ticket.GrossWeight)
	assert.Equal(t, 8500, res.Ticket.TareWeight)
	assert.Equal(t, 5580, res.Ticket.NetWeight)
}

func TestParse_ArithmeticMismatchFlagged(t *testing.T) {
	res := Parse(`
총중량: 14,080 kg
공차중량: 8,500 kg
실중량: 9,999 kg
`)
	require.True(t, res.Success())
	assert.False(t, res.Ticket.WeightValid)
}

func TestParse_ToleranceAccepted(t *testing.T) {
	res := Parse(`
총중량: 14,080 kg
공차중량: 8,500 kg
실중량: 5,590 kg
`)
	require.True(t, res.Success())
	assert.True(t, res.Ticket.WeightValid, "a 10 kg discrepancy is within tolerance")
}

func TestCleanText(t *testing.T) {
	assert.NotContains(t, cleanText("계량시각 11시 30분"), "11시 30분")
	assert.NotContains(t, cleanText("계량시각 14:25:03"), "14:25")
	assert.Contains(t, cleanText("총중량 14 080 kg"), "14080")
}

func TestExtractWeight_RangeFilter(t *testing.T) {
	// In-range value preferred over out-of-range noise.
	assert.Equal(t, 14080, extractWeight(grossWithUnitRE, grossBareRE, "총중량: 9999999 kg 총중량: 14,080 kg"))
	// Nothing plausible.
	assert.Equal(t, 0, extractWeight(grossWithUnitRE, grossBareRE, "총중량: 12 kg"))
}

func TestExtractWeight_BareNumberFallback(t *testing.T) {
	assert.Equal(t, 14080, extractWeight(grossWithUnitRE, grossBareRE, "총중량: 14080"))
}
