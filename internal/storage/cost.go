package storage

import "math"

// DefaultCostPer1KTokens approximates blended GPT-4 Turbo pricing per 1K
// tokens. Deployments override it in configuration.
const DefaultCostPer1KTokens = 0.02

// EstimateCost converts a token total into dollars at the per-1K-token
// rate, rounded to cents.
func EstimateCost(totalTokens int64, costPer1K float64) float64 {
	return math.Round(float64(totalTokens)/1000*costPer1K*100) / 100
}
