// Package validators holds the built-in custom quest validators and
// the manifest that registers them. Earlier revisions loaded these by
// file path at runtime; the manifest keeps the pluggability while the
// set of validators stays explicit and compiled in.
package validators

import (
	"context"
	"strconv"
	"time"

	"github.com/wagerdeck/questline/questline/pricing"
	"github.com/wagerdeck/questline/questline/quest"
)

// RegisterAll populates the registry with every built-in validator and
// variable function. Validators needing price data close over the
// injected pricing client.
func RegisterAll(reg *quest.Registry, prices *pricing.Client) {
	reg.RegisterValidator("rtb", "busted_round_2_same_card", BustedRoundTwoSameCard)
	reg.RegisterValidator("gluex", "total_value_traded_100_usdt0", TotalValueTraded(prices))
	reg.RegisterValidator("gluex", "volume_10_usdt0_24h", SwapVolume24h(prices))

	reg.RegisterVariable("gluex", "last24h", last24h)
}

// last24h yields the unix timestamp of 24 hours ago, used by quests
// that window their query to the last day.
func last24h(_ context.Context) (string, error) {
	return strconv.FormatInt(time.Now().Add(-24*time.Hour).Unix(), 10), nil
}
