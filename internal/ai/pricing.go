package ai

import "strings"

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Static list prices; unknown models fall back to defaultPrice.
var prices = map[string]Price{
	"google/gemini-2.5-flash":      {Input: 0.30, Output: 2.50},
	"google/gemini-2.5-flash-lite": {Input: 0.10, Output: 0.40},
	"google/gemini-2.5-pro":        {Input: 1.25, Output: 10.00},
	"openai/gpt-4o-mini":           {Input: 0.15, Output: 0.60},
	"openai/gpt-4o":                {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":                  {Input: 0.15, Output: 0.60},
	"gpt-4o":                       {Input: 2.50, Output: 10.00},
	"mock":                         {},
}

var defaultPrice = Price{Input: 0.30, Output: 2.50}

func PriceFor(model string) Price {
	if p, ok := prices[strings.ToLower(strings.TrimSpace(model))]; ok {
		return p
	}
	return defaultPrice
}

// EstimateCost returns the USD cost of one call.
func EstimateCost(model string, usage Usage) float64 {
	p := PriceFor(model)
	return (float64(usage.PromptTokens)*p.Input + float64(usage.CompletionTokens)*p.Output) / 1_000_000
}
