package client

import (
	"strconv"
	"time"
)

const compactDate = "20060102"

// listPayload builds the portal's list-query envelope. The portal requires the
// full dlParamM parameter set even when most fields are blank.
func listPayload(page, perPage, daysBack int, now time.Time) map[string]any {
	start := now.AddDate(0, 0, -daysBack)
	end := now.AddDate(0, 0, 30)

	return map[string]any{
		"dlParamM": map[string]any{
			"bidPbancNo": "", "bidPbancOrd": "", "bidPbancNm": "",
			"prcmBsneSeCd": "", "bidPbancPgstCd": "", "bidMthdCd": "",
			"currentPage": page, "frgnrRprsvYn": "", "kbrdrId": "",
			"onbsPrnmntEdDt": end.Format(compactDate),
			"onbsPrnmntStDt": now.Format(compactDate),
			"pbancInstUntyGrpNo": "", "pbancKndCd": "",
			"pbancPstgEdDt": now.Format(compactDate),
			"pbancPstgStDt": start.Format(compactDate),
			"pbancPstgYn": "Y", "pbancSttsCd": "", "pdngYn": "",
			"recordCountPerPage": strconv.Itoa(perPage),
			"rowNum":             "", "scsbdMthdCd": "", "stdCtrtMthdCd": "",
			"untyGrpNo": "", "usrTyCd": "",
		},
	}
}

// detailPayload builds the portal's detail-query envelope for one notice.
func detailPayload(bidNo, bidOrd string) map[string]any {
	return map[string]any{
		"dlSrchCndtM": map[string]any{
			"pbancFlag": "", "bidPbancNo": bidNo, "bidPbancOrd": bidOrd,
			"bidClsfNo": "0", "bidPrgrsOrd": "000", "bidPbancNm": "",
			"bidPbancPgstCd": "", "flag": "bidDtl", "frgnrRprsvYn": "",
			"kbrdrId": "", "odn3ColCn": "", "paramGbn": "1",
			"pbancInstUntyGrpNo": "", "pbancPstgEdDt": "", "pbancPstgStDt": "",
			"prcmBsneSeCd": "", "pstNo": bidNo, "recordCountPerPage": "",
			"rowNum": "", "untyGrpNo": "",
		},
	}
}
