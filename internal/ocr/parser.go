// Package ocr parses weighbridge ticket text produced by an upstream OCR
// engine. The text is noisy: labels vary between printers, digits come back
// with stray spaces, and any of the three weights can be missing or garbled.
// The parser extracts what it can by label, then repairs the weight triple
// arithmetically.
package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nurilab/nuri-collector/internal/model"
)

// Plausible weight range for a truck on a weighbridge, in kg. Numbers outside
// it are treated as OCR noise.
const (
	MinWeightKg = 100
	MaxWeightKg = 999999
)

// Label alternations seen across ticket layouts. The gross label list includes
// a common misread of the Korean header.
const (
	labelVehicle = `(?:차량\s*번호|차\s*번호|차\s*번|차량\s*No\.?)`
	labelGross   = `(?:총\s*중\s*량|Gross|중\s*량|총중량|품종명랑)`
	labelTare    = `(?:공차\s*중\s*량|Tare|차\s*중\s*량|공차중량|차중량)`
	labelNet     = `(?:실\s*중\s*량|Net|실중량)`
	labelTicket  = `(?:계근(?:표|지)?번호|전표번호|날\s*짜|ID-NO|계량횟수|계량일자)`
)

var (
	timeHangulRE = regexp.MustCompile(`\d{1,2}시\s*\d{1,2}분`)
	timeColonRE  = regexp.MustCompile(`\d{1,2}\s*[:：]\s*\d{2}(?:\s*[:：]\s*\d{2})?`)
	digitGapRE   = regexp.MustCompile(`(\d)\s+(\d{3})`)

	vehicleRE = regexp.MustCompile(labelVehicle + `\s*[:\s：]*((?:[가-힣]*\s*)?[\d\sA-Z]{2,3}[가-힣][\d\s]{4}|\d{4})`)
	ticketRE  = regexp.MustCompile(labelTicket + `\s*[:\s：]*([A-Z0-9-]+)`)

	grossWithUnitRE = weightWithUnitRE(labelGross)
	tareWithUnitRE  = weightWithUnitRE(labelTare)
	netWithUnitRE   = weightWithUnitRE(labelNet)

	grossBareRE = weightBareRE(labelGross)
	tareBareRE  = weightBareRE(labelTare)
	netBareRE   = weightBareRE(labelNet)
)

func weightWithUnitRE(label string) *regexp.Regexp {
	return regexp.MustCompile(label + `[\s\S]{0,100}?(\d[\d,]{2,})\s*kg`)
}

func weightBareRE(label string) *regexp.Regexp {
	return regexp.MustCompile(label + `\s*[:：]?\s*(\d[\d,]{2,})\b`)
}

// ParseResult wraps one parse attempt with its outcome and timing.
type ParseResult struct {
	Ticket  *model.WeightTicket
	Err     error
	Elapsed time.Duration
	Source  string
}

// Success reports whether the attempt produced a ticket.
func (r ParseResult) Success() bool { return r.Err == nil && r.Ticket != nil }

// Parse extracts a weight ticket from one OCR text blob. It never panics on
// bad input; an unusable blob comes back as a failed ParseResult.
func Parse(text string) ParseResult {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return ParseResult{
			Err:     eris.New("ocr: empty text"),
			Elapsed: time.Since(start),
		}
	}

	cleaned := cleanText(text)

	ticket := &model.WeightTicket{
		VehicleNumber: "UNKNOWN",
		TicketNumber:  "0000",
		ParsedAt:      time.Now(),
	}

	if m := vehicleRE.FindStringSubmatch(cleaned); m != nil {
		ticket.VehicleNumber = strings.ToUpper(strings.ReplaceAll(m[1], " ", ""))
	}
	if m := ticketRE.FindStringSubmatch(cleaned); m != nil {
		ticket.TicketNumber = strings.ToUpper(strings.TrimSpace(m[1]))
	}

	ticket.GrossWeight = extractWeight(grossWithUnitRE, grossBareRE, text)
	ticket.TareWeight = extractWeight(tareWithUnitRE, tareBareRE, text)
	ticket.NetWeight = extractWeight(netWithUnitRE, netBareRE, text)

	repairWeights(ticket)
	ticket.CheckWeights()

	return ParseResult{
		Ticket:  ticket,
		Elapsed: time.Since(start),
	}
}

// cleanText strips clock readings, which otherwise match as weights, and
// rejoins digits that OCR split at the thousands gap ("14 080" -> "14080").
func cleanText(text string) string {
	text = timeHangulRE.ReplaceAllString(text, " ")
	text = timeColonRE.ReplaceAllString(text, " ")
	return digitGapRE.ReplaceAllString(text, "$1$2")
}

// extractWeight finds the first in-range number after a label, preferring
// values carrying a kg unit. Returns 0 when nothing plausible follows the
// label.
func extractWeight(withUnit, bare *regexp.Regexp, text string) int {
	cleaned := cleanText(text)

	for _, m := range withUnit.FindAllStringSubmatch(cleaned, -1) {
		if w, ok := parseKg(m[1]); ok {
			return w
		}
	}
	for _, m := range bare.FindAllStringSubmatch(cleaned, -1) {
		if w, ok := parseKg(m[1]); ok {
			return w
		}
	}
	return 0
}

func parseKg(s string) (int, bool) {
	w, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || w < MinWeightKg || w > MaxWeightKg {
		return 0, false
	}
	return w, true
}

// repairWeights fixes up the weight triple. With all three present, the
// values are reassigned by magnitude so that gross >= tare >= net. With
// exactly two present, the third follows from gross = tare + net.
func repairWeights(t *model.WeightTicket) {
	known := 0
	for _, w := range []int{t.GrossWeight, t.TareWeight, t.NetWeight} {
		if w > 0 {
			known++
		}
	}

	switch known {
	case 3:
		ws := []int{t.GrossWeight, t.TareWeight, t.NetWeight}
		if ws[0] < ws[1] {
			ws[0], ws[1] = ws[1], ws[0]
		}
		if ws[1] < ws[2] {
			ws[1], ws[2] = ws[2], ws[1]
		}
		if ws[0] < ws[1] {
			ws[0], ws[1] = ws[1], ws[0]
		}
		t.GrossWeight, t.TareWeight, t.NetWeight = ws[0], ws[1], ws[2]
	case 2:
		switch {
		case t.TareWeight == 0:
			t.TareWeight = t.GrossWeight - t.NetWeight
		case t.NetWeight == 0:
			t.NetWeight = t.GrossWeight - t.TareWeight
		case t.GrossWeight == 0:
			t.GrossWeight = t.TareWeight + t.NetWeight
		}
	}
}
