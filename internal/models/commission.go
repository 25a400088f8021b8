package models

// Commission is a resolved rate (percent) and the amount it yields.
type Commission struct {
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// CommissionThreshold is one graduated tier of a partner agreement.
type CommissionThreshold struct {
	Amount float64 `json:"amount" yaml:"amount" validate:"gte=0"`
	Rate   float64 `json:"rate" yaml:"rate" validate:"gte=0,lte=100"`
}

// CommissionRule is the commission section of a partner agreement.
type CommissionRule struct {
	BaseRate   float64               `json:"rate" yaml:"rate" validate:"gte=0,lte=100"`
	Thresholds []CommissionThreshold `json:"thresholds" yaml:"thresholds" validate:"dive"`
}
