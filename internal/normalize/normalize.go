// Package normalize maps raw Nuri G2B payloads into canonical notices. It is
// pure: no I/O, no retries, and shape mismatches yield empty results rather
// than errors so that a broken page stays distinct from an empty one.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/nurilab/nuri-collector/internal/model"
)

// containerKeys are the known envelope keys that may hold the notice list,
// checked in priority order. First match wins.
var containerKeys = []string{"result", "list", "resultList", "data", "rows"}

const detailURLBase = "https://nuri.g2b.go.kr/nn/nnb/nnbb/selectBidNoceDetl.do?pbancNo="

// ExtractNotices pulls the raw notice list out of a list-endpoint response.
// An unrecognized shape returns nil, never an error.
func ExtractNotices(payload map[string]any) []map[string]any {
	if payload == nil {
		return nil
	}
	for _, key := range containerKeys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		notices := make([]map[string]any, 0, len(items))
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				notices = append(notices, m)
			}
		}
		return notices
	}
	return nil
}

// ToNotice maps one raw list item to a canonical Notice. The portal has
// shipped several field-name variants over time, so every field is resolved
// through an alias chain. Returns nil when no notice ID can be found.
func ToNotice(raw map[string]any) *model.Notice {
	id := firstString(raw, "bidPbancNo", "bidNo", "pbancNo")
	if id == "" {
		return nil
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		rawJSON = []byte("{}")
	}

	return &model.Notice{
		NoticeID:      id,
		Title:         firstString(raw, "bidPbancNm", "pbancNm"),
		OrgName:       firstString(raw, "grpNm", "instNm", "pbancInstNm"),
		NoticeType:    firstString(raw, "prcmBsneSeCdNm", "pbancTyCdNm"),
		BidMethod:     firstString(raw, "bidMthdCdNm", "bidMthdNm"),
		DueDate:       NormalizeDate(firstString(raw, "onbsPrnmntEdDt", "bidClseDt")),
		AnnounceDate:  NormalizeDate(firstString(raw, "pbancPstgDt", "regDt")),
		Budget:        firstString(raw, "bscAmt", "presmptPrc"),
		DemandCompany: firstString(raw, "dmndComp", "dmndCompNm"),
		DetailURL:     detailURLBase + id,
		RawData:       rawJSON,
	}
}

// MergeDetail backfills fields the listing omitted and records the full detail
// payload under a "detail" key inside RawData. Canonical fields that are
// already set are never overwritten.
func MergeDetail(n *model.Notice, detail map[string]any) *model.Notice {
	if n == nil || detail == nil {
		return n
	}

	if n.Budget == "" {
		n.Budget = firstString(detail, "bscAmt", "presmptPrc")
	}
	if n.DemandCompany == "" {
		n.DemandCompany = firstString(detail, "dmndComp", "dmndCompNm")
	}

	var raw map[string]any
	if len(n.RawData) > 0 {
		if err := json.Unmarshal(n.RawData, &raw); err != nil {
			raw = nil
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	raw["detail"] = detail
	if merged, err := json.Marshal(raw); err == nil {
		n.RawData = merged
	}

	return n
}

// Validate enforces the canonical-record invariant: non-empty notice ID and
// title. Records failing this never reach the store.
func Validate(n *model.Notice) error {
	if n == nil {
		return eris.New("normalize: nil notice")
	}
	if n.NoticeID == "" {
		return eris.New("normalize: missing notice ID")
	}
	if strings.TrimSpace(n.Title) == "" {
		return eris.Errorf("normalize: notice %s has no title", n.NoticeID)
	}
	return nil
}

// NormalizeDate converts the portal's compact 8-digit dates (with optional
// separators or a trailing time part) into ISO YYYY-MM-DD. Anything it cannot
// recognize passes through unchanged.
func NormalizeDate(s string) string {
	if s == "" {
		return ""
	}
	clean := s
	if i := strings.IndexByte(clean, ' '); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.NewReplacer("/", "", "-", "", ".", "").Replace(clean)
	if len(clean) != 8 || !isDigits(clean) {
		return s
	}
	return clean[:4] + "-" + clean[4:6] + "-" + clean[6:8]
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// firstString returns the first non-empty value among the keys, stringifying
// numeric JSON values (budgets arrive as numbers on some responses).
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			if t == float64(int64(t)) {
				return fmt.Sprintf("%d", int64(t))
			}
			return fmt.Sprintf("%v", t)
		}
	}
	return ""
}
