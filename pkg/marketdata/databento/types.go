package databento

// recordHeader mirrors the common header on every Databento JSON record.
type recordHeader struct {
	TsEvent      string `json:"ts_event"` // event time, nanoseconds since epoch
	RType        int    `json:"rtype"`
	PublisherID  int    `json:"publisher_id"`
	InstrumentID int64  `json:"instrument_id"`
}

// ohlcvRecord mirrors one line of a timeseries.get_range response in the
// ohlcv schemas. Prices are fixed-point integers scaled by 1e9.
type ohlcvRecord struct {
	Header recordHeader `json:"hd"`
	Open   string       `json:"open"`
	High   string       `json:"high"`
	Low    string       `json:"low"`
	Close  string       `json:"close"`
	Volume string       `json:"volume"`
	Symbol string       `json:"symbol"`
}
