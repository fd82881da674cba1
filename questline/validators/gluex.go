package validators

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/wagerdeck/questline/questline/pricing"
	"github.com/wagerdeck/questline/questline/quest"
)

const (
	usdt0Address  = "0xb8ce59fc3717ada4c02eadf9682a9e934f625ebb"
	nativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

	usdt0Decimals  = 6
	nativeDecimals = 18

	// 100 USDT0 expressed in 6-decimal units.
	defaultTradeTarget = 100_000_000
)

// TotalValueTraded completes when the user's summed token volumes,
// converted to USDT0 through the price client, reach the target. The
// target comes from the first type parameter when present.
func TotalValueTraded(prices *pricing.Client) quest.ValidatorFunc {
	return func(ctx context.Context, data any, params map[string]any) (any, error) {
		volumes, ok := resolveArray(data, "user.tokenVolumes")
		if !ok {
			return false, nil
		}

		target := numericTypeParam(params, 0, defaultTradeTarget)

		tokens := make([]string, 0, len(volumes))
		for _, tv := range volumes {
			if token := stringField(tv, "token"); token != "" {
				tokens = append(tokens, token)
			}
		}
		quotes := prices.TokenPrices(ctx, tokens)

		var total float64
		for _, tv := range volumes {
			volume := numericField(tv, "totalVolume")
			token := strings.ToLower(stringField(tv, "token"))

			switch token {
			case usdt0Address:
				total += volume
			case nativeAddress:
				// Native volume arrives in 18-decimal units; the quote is
				// per whole token, so rescale into USDT0's 6 decimals.
				amount := volume / math.Pow10(nativeDecimals)
				total += amount * quotes[token] * math.Pow10(usdt0Decimals)
			default:
				total += volume * quotes[token]
			}
		}

		return total >= target, nil
	}
}

// SwapVolume24h reports the USD value of the queried swaps as progress;
// the completion target is the first type parameter (whole USD).
func SwapVolume24h(prices *pricing.Client) quest.ValidatorFunc {
	return func(ctx context.Context, data any, params map[string]any) (any, error) {
		swaps, ok := resolveArray(data, "swaps")
		if !ok {
			return 0.0, nil
		}

		baseToken := usdt0Address
		if configured, ok := params["baseToken"].(string); ok && configured != "" {
			baseToken = strings.ToLower(configured)
		}
		baseDecimals := tokenDecimals(prices, baseToken, usdt0Decimals)

		tokens := make([]string, 0, len(swaps))
		for _, swap := range swaps {
			token := strings.ToLower(stringField(swap, "inputToken"))
			if token != "" && token != baseToken {
				tokens = append(tokens, token)
			}
		}
		quotes := prices.TokenPrices(ctx, tokens)

		var totalUSD float64
		for _, swap := range swaps {
			amount := numericField(swap, "inputAmount")
			token := strings.ToLower(stringField(swap, "inputToken"))

			if token == baseToken {
				// Base token trades 1:1 with USD; strip its decimals.
				totalUSD += amount / math.Pow10(baseDecimals)
				continue
			}

			// The quote is base-token smallest units per input smallest
			// unit, so the product only needs the base decimals removed.
			totalUSD += amount * quotes[token] / math.Pow10(baseDecimals)
		}

		return totalUSD, nil
	}
}

func tokenDecimals(prices *pricing.Client, address string, fallback int) int {
	if info, ok := prices.TokenInfo(address); ok && info.Decimals > 0 {
		return info.Decimals
	}
	return fallback
}

func numericTypeParam(params map[string]any, index int, fallback float64) float64 {
	typeParams, ok := params["typeParams"].([]any)
	if !ok || index >= len(typeParams) {
		return fallback
	}
	switch v := typeParams[index].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func stringField(item any, path string) string {
	value, _ := quest.Resolve(item, path)
	s, _ := value.(string)
	return s
}

func numericField(item any, path string) float64 {
	value, ok := quest.Resolve(item, path)
	if !ok {
		return 0
	}
	switch v := value.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
