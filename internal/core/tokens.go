// ABOUTME: Token cost estimation for chunk budgeting
// ABOUTME: Approximates generation-model tokens as ceil(chars / 4)
package core

// EstimateTokens approximates the generation-model token cost of text.
// The estimate is a pure function of length: ceil(len/4). It returns 0
// for the empty string and is non-decreasing in string length.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
