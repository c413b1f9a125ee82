package types

import (
	"math"

	"github.com/goccy/go-json"
)

// Label is a categorical verdict on a percentile rank.
type Label string

const (
	Great         Label = "Great"
	Good          Label = "Good"
	Average       Label = "Average"
	Poor          Label = "Poor"
	NotAvailable  Label = "Not Available"
	NotEnoughData Label = "Not Enough Data"
)

// RankEvaluation is the labelled form of one rank. Rank is a percentage with
// two decimals and is only meaningful for the four band labels.
type RankEvaluation struct {
	Result Label
	Rank   float64
}

// Unavailable is the sentinel evaluation for a missing rank.
func Unavailable() RankEvaluation { return RankEvaluation{Result: NotAvailable} }

// Available reports whether the evaluation carries a rank.
func (e RankEvaluation) Available() bool {
	return e.Result != NotAvailable && e.Result != NotEnoughData
}

// MarshalJSON renders "Not Available" as a bare string and "Not Enough Data"
// as an object without rank, matching what dashboards already consume.
func (e RankEvaluation) MarshalJSON() ([]byte, error) {
	switch e.Result {
	case NotAvailable, "":
		return json.Marshal(string(NotAvailable))
	case NotEnoughData:
		return json.Marshal(map[string]string{"result": string(NotEnoughData)})
	}
	return json.Marshal(struct {
		Result Label   `json:"result"`
		Rank   float64 `json:"rank"`
	}{e.Result, e.Rank})
}

// Round2 rounds v to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
