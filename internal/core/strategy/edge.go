package strategy

// The exchange charges its fee on winnings. Once a total has crossed its
// trigger the YES outcome is effectively certain, so the conservative
// model is simply net payout minus cost:
//
//	net = 100 × (1 − fee) = 93 cents at the default 7% fee
//	edge(ask) = net − ask
const DefaultFeeRate = 0.07

const contractPayoutCents = 100

// NetPayoutCents is the fee-adjusted gross payout per contract.
func NetPayoutCents(feeRate float64) int {
	return int(contractPayoutCents * (1.0 - feeRate))
}

// Edge is cents of expected profit per contract at the given YES ask,
// assuming the outcome is already determined. Can be negative.
func Edge(yesAskCents int, feeRate float64) int {
	return NetPayoutCents(feeRate) - yesAskCents
}

func HasEdge(yesAskCents, minEdgeCents int, feeRate float64) bool {
	return Edge(yesAskCents, feeRate) >= minEdgeCents
}

// MaxTradeablePrice is the highest ask that still leaves minEdgeCents of
// edge. Signals cap their limit price here.
func MaxTradeablePrice(minEdgeCents int, feeRate float64) int {
	return NetPayoutCents(feeRate) - minEdgeCents
}

// MoneylineEdge discounts the payout by an estimated win probability
// instead of assuming certainty.
func MoneylineEdge(winProb float64, askCents int, feeRate float64) int {
	return int(contractPayoutCents*winProb*(1.0-feeRate)) - askCents
}

// ClampQuantity sizes an order by spend budget, bounded to [1, maxQty].
func ClampQuantity(maxSpendCents, askCents, maxQty int) int {
	if askCents < 1 {
		askCents = 1
	}
	qty := maxSpendCents / askCents
	if qty < 1 {
		qty = 1
	}
	if qty > maxQty {
		qty = maxQty
	}
	return qty
}
