package model

import (
	"encoding/json"
	"time"
)

// Notice is the canonical form of one procurement notice collected from the
// Nuri G2B portal. NoticeID and Title are required; everything else is
// best-effort, depending on what the list/detail payloads carry.
type Notice struct {
	NoticeID      string          `json:"notice_id"`
	Title         string          `json:"title"`
	OrgName       string          `json:"org_name,omitempty"`
	NoticeType    string          `json:"notice_type,omitempty"`
	BidMethod     string          `json:"bid_method,omitempty"`
	DueDate       string          `json:"due_date,omitempty"`
	AnnounceDate  string          `json:"announce_date,omitempty"`
	Budget        string          `json:"budget,omitempty"`
	DemandCompany string          `json:"demand_company,omitempty"`
	DetailURL     string          `json:"detail_url,omitempty"`
	RawData       json.RawMessage `json:"raw_data,omitempty"`
	CollectedAt   time.Time       `json:"collected_at,omitempty"`
}

// ScrapStatus marks the outcome of one collection attempt in the scrap log.
type ScrapStatus string

const (
	ScrapSuccess ScrapStatus = "SUCCESS"
	ScrapFailed  ScrapStatus = "FAILED"
)

// ScrapLog is one row of the dedup log. A SUCCESS entry is permanent proof of
// prior collection; later runs skip the notice on its strength alone.
type ScrapLog struct {
	NoticeID    string      `json:"notice_id"`
	Status      ScrapStatus `json:"status"`
	ErrorMsg    string      `json:"error_msg,omitempty"`
	CollectedAt time.Time   `json:"collected_at"`
}
