package api

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	ServiceName  string `json:"serviceName"`
	LoadingState string `json:"loadingState"`
	Period       string `json:"period"`
	Online       bool   `json:"online"`
	CardCount    int    `json:"cardCount"`
	Clock        string `json:"clock"`
}

// CardListResponse is returned by GET /api/cards
type CardListResponse struct {
	Period      string     `json:"period"`
	PeriodLabel string     `json:"periodLabel"`
	Cards       []CardView `json:"cards"`
}

// CardView is one card rendered for display
type CardView struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Position       int     `json:"position"`
	Actual         float64 `json:"actual"`
	Benchmark      float64 `json:"benchmark"`
	Percentage     float64 `json:"percentage"`
	Value          string  `json:"value"`
	Target         string  `json:"target"`
	PercentageText string  `json:"percentageText"`
	Status         string  `json:"status"`
	Color          string  `json:"color"`
}

// CreateCardRequest is the body of POST /api/cards
type CreateCardRequest struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

// UpdateTitleRequest is the body of PATCH /api/cards/{id}
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// SwapRequest is the body of POST /api/cards/{id}/swap
type SwapRequest struct {
	With string `json:"with"`
}

// PeriodRequest is the body of PUT /api/period
type PeriodRequest struct {
	Period string `json:"period"`
}

// OnlineRequest is the body of PUT /api/online
type OnlineRequest struct {
	Online bool `json:"online"`
}

// ErrorResponse carries a failed operation back to the client
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
