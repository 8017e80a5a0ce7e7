// Package risk decides whether a scored opportunity is eligible for entry.
// The filter is pure: it consumes facts collected upstream and never calls
// out to the network itself.
package risk

import (
	"fmt"

	"memetrader/internal/config"
	"memetrader/internal/domain"
)

// RejectReason names the first eligibility check an opportunity failed.
type RejectReason string

const (
	ReasonLiquidityTooLow    RejectReason = "liquidity-too-low"
	ReasonHoldersTooFew      RejectReason = "holders-too-few"
	ReasonTokenTooOld        RejectReason = "token-too-old"
	ReasonContractUnverified RejectReason = "contract-unverified"
	ReasonHoneypot           RejectReason = "honeypot-sell-reverts"
	ReasonSellTaxTooHigh     RejectReason = "sell-tax-too-high"
	ReasonPriceImpactTooHigh RejectReason = "price-impact-too-high"
	ReasonLiquidityRatioLow  RejectReason = "liquidity-ratio-too-low"
)

// Result is the filter verdict for one opportunity.
type Result struct {
	Accepted bool
	Reason   RejectReason // empty when accepted
	Detail   string       // human-readable threshold comparison
}

func reject(reason RejectReason, format string, args ...any) Result {
	return Result{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Evaluate runs the eligibility checks in order and stops at the first
// failure. The quote is a fresh entry-sized quote for the token; its
// OutAmount prices the intended position for the liquidity ratio check.
func Evaluate(opp *domain.Opportunity, quote *domain.Quote, cfg *config.Config, nowMs int64) Result {
	if opp.LiquidityUSD < cfg.MinLiquidityUSD {
		return reject(ReasonLiquidityTooLow, "liquidity %.0f below minimum %.0f",
			opp.LiquidityUSD, cfg.MinLiquidityUSD)
	}

	if opp.Holders < cfg.MinHolders {
		return reject(ReasonHoldersTooFew, "%d holders below minimum %d",
			opp.Holders, cfg.MinHolders)
	}

	if age := opp.AgeMs(nowMs); age > cfg.MaxTokenAge.Milliseconds() {
		return reject(ReasonTokenTooOld, "age %dms above maximum %dms",
			age, cfg.MaxTokenAge.Milliseconds())
	}

	if !opp.ContractVerified {
		return reject(ReasonContractUnverified, "contract source not verified")
	}

	if !opp.SellSimOK {
		return reject(ReasonHoneypot, "simulated sell did not complete")
	}

	if opp.SellTaxPct > cfg.MaxSellTaxPct {
		return reject(ReasonSellTaxTooHigh, "sell tax %.1f%% above maximum %.1f%%",
			opp.SellTaxPct, cfg.MaxSellTaxPct)
	}

	if quote != nil {
		if quote.PriceImpactPct > cfg.MaxPriceImpactPct {
			return reject(ReasonPriceImpactTooHigh, "price impact %.2f%% above maximum %.2f%%",
				quote.PriceImpactPct, cfg.MaxPriceImpactPct)
		}

		if posValueUSD := quote.OutAmount * opp.PriceUSD; posValueUSD > 0 {
			ratio := opp.LiquidityUSD / posValueUSD
			if ratio < cfg.MinLiquidityRatio {
				return reject(ReasonLiquidityRatioLow, "liquidity/position ratio %.1f below minimum %.1f",
					ratio, cfg.MinLiquidityRatio)
			}
		}
	}

	return Result{Accepted: true}
}
