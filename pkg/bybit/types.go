package bybit

import "encoding/json"

// BybitResponse represents a generic response from Bybit's V5 REST API.
// This structure covers the standard response envelope used across all endpoints.
type BybitResponse struct {
	RetCode    int                    `json:"retCode"`    // 0 means success; non-zero indicates an error code
	RetMsg     string                 `json:"retMsg"`     // Human-readable message describing the result or error
	Result     json.RawMessage        `json:"result"`     // Main response payload (varies per endpoint)
	RetExtInfo map[string]interface{} `json:"retExtInfo"` // Optional extra info (e.g. rate limits, error hints)
	Time       int64                  `json:"time"`       // Server timestamp (in milliseconds since epoch)
}

// Instrument is one entry of /v5/market/instruments-info.
type Instrument struct {
	Symbol    string `json:"symbol"`    // e.g., "BTCUSDT"
	Status    string `json:"status"`    // e.g., "Trading", "PreLaunch", "Delivering", "Closed"
	BaseCoin  string `json:"baseCoin"`  // e.g., "BTC"
	QuoteCoin string `json:"quoteCoin"` // e.g., "USDT"
}

// Trading reports whether the instrument is currently tradable.
func (i Instrument) Trading() bool {
	return i.Status == StatusTrading
}

type InstrumentListResponse struct {
	Category       string       `json:"category"` // e.g., "linear", "spot"
	NextPageCursor string       `json:"nextPageCursor"`
	List           []Instrument `json:"list"`
}

type ServerTimeResponse struct {
	TimeSecond string `json:"timeSecond"`
	TimeNano   string `json:"timeNano"`
}

const StatusTrading = "Trading"
