package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OptionType is the right of an option contract.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" and the common C/P, CE/PE spellings.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "ce":
		return Call, nil
	case "put", "p", "pe":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// ContractMultiplier is the number of underlying units per contract.
const ContractMultiplier = 100

// OptionContract is one quoted contract of an options chain.
// Greeks and implied volatility are not quoted for every contract and stay
// undefined when absent; volume and open interest default to zero.
type OptionContract struct {
	Symbol            string     `json:"symbol,omitempty"`
	Expiration        time.Time  `json:"expiration"`
	Strike            float64    `json:"strike"`
	Type              OptionType `json:"type"`
	Volume            float64    `json:"volume"`
	OpenInterest      float64    `json:"open_interest"`
	ImpliedVolatility Value      `json:"implied_volatility"`
	Delta             Value      `json:"delta"`
	Gamma             Value      `json:"gamma"`
	InTheMoney        bool       `json:"in_the_money"`
}

// Notional returns openInterest * strike * ContractMultiplier.
func (c *OptionContract) Notional() float64 {
	return c.OpenInterest * c.Strike * ContractMultiplier
}

// OptionsSnapshot is the union of contracts across the nearest expirations,
// both calls and puts, in expiration-ascending order.
type OptionsSnapshot struct {
	Underlying  string           `json:"underlying"`
	Expirations []time.Time      `json:"expirations"`
	Contracts   []OptionContract `json:"contracts"`
}

// Empty reports whether the snapshot carries no contracts.
func (s *OptionsSnapshot) Empty() bool {
	return s == nil || len(s.Contracts) == 0
}

// AnalysisResult is the fixed-shape output of the options chain analysis.
// Metrics whose denominator is zero, or whose contract subset is empty,
// are undefined. NoData is set instead of computing when the snapshot has
// no contracts; Err reports it as ErrNoData.
type AnalysisResult struct {
	Underlying string    `json:"underlying,omitempty"`
	LastClose  float64   `json:"last_close"`
	NoData     bool      `json:"no_data"`
	AsOf       time.Time `json:"as_of"`

	PutCallVolumeRatio Value   `json:"put_call_volume_ratio"`
	PutCallOIRatio     Value   `json:"put_call_oi_ratio"`
	ATMIV              Value   `json:"atm_iv"`
	VolatilitySkew     Value   `json:"volatility_skew"`
	TotalNotional      float64 `json:"total_notional"`
	NetDelta           Value   `json:"net_delta"`
	NetGamma           Value   `json:"net_gamma"`

	CallVolume  float64     `json:"call_volume"`
	PutVolume   float64     `json:"put_volume"`
	CallOI      float64     `json:"call_oi"`
	PutOI       float64     `json:"put_oi"`
	Contracts   int         `json:"contracts"`
	Expirations []time.Time `json:"expirations,omitempty"`
}

// Err returns ErrNoData when the result carries no metrics, else nil.
func (r *AnalysisResult) Err() error {
	if r.NoData {
		return ErrNoData
	}
	return nil
}

// JSON returns the JSON-encoded result.
func (r *AnalysisResult) JSON() []byte {
	out, _ := json.Marshal(r)
	return out
}
