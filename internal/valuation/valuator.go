// Package valuation estimates an item's fair value by combining the oracle's
// base price for its canonical key with attribute-driven modifiers.
package valuation

import (
	"context"
	"log/slog"

	"github.com/arvida42/skyflip/internal/codec"
	"github.com/arvida42/skyflip/internal/domain"
)

// PriceSource resolves a canonical item key to its current base price.
// Unknown keys yield zero, never an error.
type PriceSource interface {
	BasePrice(ctx context.Context, itemName string) (float64, error)
}

// Rule is one independent value modifier: a pure function of the decoded
// item and current prices. Rules that do not apply return zero, keeping the
// estimate a conservative lower bound.
type Rule struct {
	Name  string
	Apply func(ctx context.Context, item domain.DecodedItem, prices PriceSource) (float64, error)
}

// Estimate is the result of valuing one item.
type Estimate struct {
	Base  float64
	Extra float64
	Total float64
}

// Valuator applies an ordered list of modifier rules on top of the oracle's
// base price. New modifiers are added to the rule list without touching
// existing ones.
type Valuator struct {
	prices PriceSource
	rules  []Rule
	logger *slog.Logger
}

// New creates a Valuator with the default modifier rule set.
func New(prices PriceSource, logger *slog.Logger) *Valuator {
	return &Valuator{
		prices: prices,
		rules:  defaultRules(),
		logger: logger.With(slog.String("component", "valuator")),
	}
}

// Estimate values the item: base price for its canonical key plus the sum of
// all applicable modifiers. A failing price lookup inside a rule contributes
// zero rather than failing the whole estimate; valuation always returns a
// number.
func (v *Valuator) Estimate(ctx context.Context, item domain.DecodedItem) Estimate {
	key := codec.CanonicalName(item)

	base, err := v.prices.BasePrice(ctx, key)
	if err != nil {
		v.logger.WarnContext(ctx, "base price lookup failed",
			slog.String("item", key),
			slog.String("error", err.Error()),
		)
		base = 0
	}

	var extra float64
	for _, rule := range v.rules {
		add, err := rule.Apply(ctx, item, v.prices)
		if err != nil {
			v.logger.WarnContext(ctx, "modifier rule failed",
				slog.String("rule", rule.Name),
				slog.String("item", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		extra += add
	}

	return Estimate{Base: base, Extra: extra, Total: base + extra}
}
