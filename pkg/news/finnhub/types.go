package finnhub

// companyNewsItem mirrors one element of the /company-news response.
type companyNewsItem struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"` // unix seconds
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// apiError mirrors Finnhub's error envelope, returned with a non-2xx status.
type apiError struct {
	Error string `json:"error"`
}
