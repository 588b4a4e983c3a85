package entities

// ChainBalance is one chain's entry in a balance snapshot. A failed RPC query
// reports zero balances with Error set instead of aborting the scan.
type ChainBalance struct {
	Chain   string `json:"chain"`
	Native  string `json:"native"` // native gas asset, decimal string
	USDC    string `json:"usdc"`   // settlement stablecoin, decimal string
	HasSwap bool   `json:"hasSwap"`
	Error   string `json:"error,omitempty"`
}

// BalanceSnapshot maps chain key to its scanned balances
type BalanceSnapshot map[string]ChainBalance
