package domain

// SwapDefaults are a wallet's remembered swap preferences.
type SwapDefaults struct {
	SlippageBps uint16   `json:"slippageBps"`
	Mode        SwapMode `json:"mode"`
}
