package models

// Requests for analysis HTTP endpoints. Defined in domain for consistency and reuse.

type HistoryRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	Days  int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=365"`
}

type ForecastRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	Days  int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=365"`
	Model string `query:"model" json:"model" default:"lstm" validate:"oneof=lstm arima"`
}

type RecoveryRequest struct {
	Asset         string  `json:"asset" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PurchasePrice float64 `json:"purchasePrice" validate:"required,gt=0"`
	PurchaseDate  string  `json:"purchaseDate" validate:"required"`
	Sentiment     float64 `json:"sentiment" default:"0.5" validate:"gte=0,lte=1"`
}

type PositionRequest struct {
	Asset         string  `json:"asset" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PurchasePrice float64 `json:"purchasePrice" validate:"gte=0"`
}

type RiskRequest struct {
	Positions []PositionRequest `json:"positions" validate:"required,min=1,dive"`
	Tolerance string            `json:"tolerance" default:"medium" validate:"oneof=low medium high"`
	Days      int               `json:"days" default:"90" validate:"gte=30,lte=365"`
}

type OptimizeRequest struct {
	Positions []PositionRequest `json:"positions" validate:"required,min=1,dive"`
	Tolerance string            `json:"tolerance" default:"medium" validate:"oneof=low medium high"`
	Days      int               `json:"days" default:"90" validate:"gte=30,lte=365"`
}
