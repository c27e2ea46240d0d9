package ruleengine

import "math/big"

var ten = big.NewInt(10)
var tenThousand = big.NewInt(10000)

// decodeSecurityCode extracts the 4-digit security code from the raw
// on-chain value carried by a source deposit (spec.md §4.1 step 1):
// digit 0 is the dealer id, digit 1 the EBC id, digits 2-3 the target
// chain index, all base-10.
func decodeSecurityCode(value *big.Int) SecurityCode {
	code := new(big.Int).Mod(value, tenThousand)
	digits := code.Int64()

	return SecurityCode{
		DealerID:         int(digits % 10),
		EBCID:            int((digits / 10) % 10),
		TargetChainIndex: int(digits / 100),
	}
}

// securityCodeValue returns the security code as *big.Int, the amount
// to subtract from the raw value during amount derivation.
func securityCodeValue(value *big.Int) *big.Int {
	return new(big.Int).Mod(value, tenThousand)
}

// spliceSafetyCode overwrites the trailing 4 digits of a
// already-truncated amount with the zero-padded nonce (spec.md §4.1
// step 6). responseAmountRaw's last 4 digits are always zero by
// construction, so this is a plain addition, not a string operation —
// it is bit-compatible with the source's digit-splice because the low
// 4 digits are guaranteed clear beforehand.
func spliceSafetyCode(responseAmountRaw *big.Int, nonce int64) *big.Int {
	return new(big.Int).Add(responseAmountRaw, big.NewInt(nonce))
}
