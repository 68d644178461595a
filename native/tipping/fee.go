package tipping

import (
	"math/big"

	"github.com/holiman/uint256"
)

// SplitFee divides a gross tip into the platform fee and the creator's net
// share: fee = floor(gross * feeBps / 10000), net = gross - fee.
func SplitFee(gross *big.Int, feeBps uint16) (fee, net *big.Int, err error) {
	if gross == nil || gross.Sign() < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if feeBps > MaxPlatformFeeBps {
		return nil, nil, ErrFeeTooHigh
	}
	amount, overflow := uint256.FromBig(gross)
	if overflow {
		return nil, nil, ErrAmountOverflow
	}
	// 256-bit product: gross < 2^256 and feeBps <= 1000 cannot wrap the
	// intermediate before division.
	feeWord, overflow := new(uint256.Int).MulDivOverflow(
		amount,
		uint256.NewInt(uint64(feeBps)),
		uint256.NewInt(uint64(FeeDenominator)),
	)
	if overflow {
		return nil, nil, ErrAmountOverflow
	}
	fee = feeWord.ToBig()
	net = new(big.Int).Sub(gross, fee)
	return fee, net, nil
}
