package models

type Balance struct {
	Address string `json:"address"`
	Wei     string `json:"wei"`
	Eth     string `json:"eth"`
	// Fiat fields are empty when pricing is disabled or the quote failed.
	FiatCurrency string  `json:"fiat_currency,omitempty"`
	FiatValue    float64 `json:"fiat_value,omitempty"`
}
