package marketplace

import "math/bits"

const MaxFeeRate uint = 100

// CalculateFee returns floor(price * rate / 100) without overflowing for any rate <= 100.
func CalculateFee(price uint64, rate uint) uint64 {
	r := uint64(rate)
	return (price/100)*r + (price%100)*r/100
}

// PurchaseTotal is the exact payment a buyer must attach. ok is false when the sum overflows.
func PurchaseTotal(price uint64, rate uint) (total uint64, fee uint64, ok bool) {
	fee = CalculateFee(price, rate)
	total, carry := bits.Add64(price, fee, 0)
	return total, fee, carry == 0
}
