package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// WeiDecimals number of decimals of the ledger's native unit
const WeiDecimals = 18

// EtherUnits formats an amount of wei as ether with all significant decimals
func EtherUnits(v uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -WeiDecimals).String()
}
