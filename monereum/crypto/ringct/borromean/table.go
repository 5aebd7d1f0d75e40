package borromean

import (
	"sync"

	"github.com/monereum/engine/monereum/crypto/bn254"
)

// generatorHPow2 H·2^i for i in 0 ..< Elements, affine
var generatorHPow2 = sync.OnceValue(func() (table [Elements]bn254.Point) {
	table[0].Set(&bn254.Params().H)
	for i := 1; i < Elements; i++ {
		table[i].Double(&table[i-1])
	}
	bn254.BatchAffine(table[:])
	return table
})
