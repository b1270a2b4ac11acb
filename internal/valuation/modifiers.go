package valuation

import (
	"context"
	"math"
	"strings"

	"github.com/arvida42/skyflip/internal/codec"
	"github.com/arvida42/skyflip/internal/domain"
)

// Reference material keys used by the modifier rules. These are priced from
// the bazaar sell-order board, never from auction floors.
const (
	keyHotPotatoBook    = "HOT_POTATO_BOOK"
	keyFumingPotatoBook = "FUMING_POTATO_BOOK"
	keyRecombobulator   = "RECOMBOBULATOR_3000"
	keyWoodSingularity  = "WOOD_SINGULARITY"
)

// baselinePotatoBooks is the applied-book count already reflected in floor
// prices; only books beyond it add value.
const baselinePotatoBooks = 10

func defaultRules() []Rule {
	return []Rule{
		{Name: "potato_books", Apply: potatoBooks},
		{Name: "recombobulator", Apply: recombobulator},
		{Name: "wood_singularity", Apply: woodSingularity},
		{Name: "enchantments", Apply: enchantments},
	}
}

// potatoBooks values applied potato books beyond the baseline of ten: the
// first ten count as hot potato books, the rest as fuming.
func potatoBooks(ctx context.Context, item domain.DecodedItem, prices PriceSource) (float64, error) {
	attr, ok := item.Attr("hot_potato_count")
	if !ok {
		return 0, nil
	}
	count := int(attr.AsInt())
	if count <= baselinePotatoBooks {
		return 0, nil
	}

	hot, err := prices.BasePrice(ctx, keyHotPotatoBook)
	if err != nil {
		return 0, err
	}
	fuming, err := prices.BasePrice(ctx, keyFumingPotatoBook)
	if err != nil {
		return 0, err
	}
	return float64(baselinePotatoBooks)*hot + float64(count-baselinePotatoBooks)*fuming, nil
}

// recombobulator adds the recombobulator price when the item carries a
// rarity upgrade.
func recombobulator(ctx context.Context, item domain.DecodedItem, prices PriceSource) (float64, error) {
	attr, ok := item.Attr("rarity_upgrades")
	if !ok || attr.AsInt() < 1 {
		return 0, nil
	}
	return prices.BasePrice(ctx, keyRecombobulator)
}

// woodSingularity adds the singularity price for exactly one application.
func woodSingularity(ctx context.Context, item domain.DecodedItem, prices PriceSource) (float64, error) {
	attr, ok := item.Attr("wood_singularity_count")
	if !ok || attr.AsInt() != 1 {
		return 0, nil
	}
	return prices.BasePrice(ctx, keyWoodSingularity)
}

// enchantments sums book prices for every recognized enchantment at or above
// its minimum level. Exponential enchants contribute 2^(level-1) times the
// reference price; all others contribute the flat reference price.
//
// Enchanted books are skipped outright: their value is already folded into
// the base price via the canonical key. Items without clean provenance (an
// unknown-origin marker, or dungeon-sourced per the lore) are also skipped,
// since those spawn with intrinsic enchants that would be double-counted.
func enchantments(ctx context.Context, item domain.DecodedItem, prices PriceSource) (float64, error) {
	if item.TypeID == "ENCHANTED_BOOK" {
		return 0, nil
	}
	if origin, ok := item.Attr("originTag"); ok && origin.AsString() == "UNKNOWN" {
		return 0, nil
	}
	for _, line := range item.LoreLines() {
		if strings.Contains(line, "DUNGEON") {
			return 0, nil
		}
	}

	attr, ok := item.Attr("enchantments")
	if !ok || attr.Kind != domain.KindMap {
		return 0, nil
	}

	var total float64
	for name, levelVal := range attr.Map {
		level := int(levelVal.AsInt())
		ench, ok := codec.Recognized(name, level)
		if !ok {
			continue
		}
		price, err := prices.BasePrice(ctx, strings.ToUpper(name))
		if err != nil {
			return 0, err
		}
		if ench.Exponential {
			total += math.Pow(2, float64(level-1)) * price
		} else {
			total += price
		}
	}
	return total, nil
}
