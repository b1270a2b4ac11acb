package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arvida42/skyflip/internal/domain"
)

const (
	typeEnchantedBook = "ENCHANTED_BOOK"
	typePet           = "PET"

	// petTierBoost is the held-item marker that promotes an EPIC pet to
	// LEGENDARY. No other tier is promoted.
	petTierBoost = "PET_ITEM_TIER_BOOST"
)

// Decode parses a listing's raw (base64-decoded) item payload into a
// DecodedItem. The payload is a gzipped NBT document whose root holds an "i"
// list with a single item compound carrying Count, id, and a tag tree with
// the ExtraAttributes compound.
func Decode(raw []byte) (domain.DecodedItem, error) {
	root, err := decodeNBT(raw)
	if err != nil {
		return domain.DecodedItem{}, err
	}

	items, ok := root.Lookup("i")
	if !ok || items.Kind != domain.KindList || len(items.List) == 0 {
		return domain.DecodedItem{}, fmt.Errorf("%w: missing item list", domain.ErrDecode)
	}
	item := items.List[0]
	if item.Kind != domain.KindMap {
		return domain.DecodedItem{}, fmt.Errorf("%w: item is not a compound", domain.ErrDecode)
	}

	tag, ok := item.Lookup("tag")
	if !ok || tag.Kind != domain.KindMap {
		return domain.DecodedItem{}, fmt.Errorf("%w: missing tag compound", domain.ErrDecode)
	}
	extra, ok := tag.Lookup("ExtraAttributes")
	if !ok || extra.Kind != domain.KindMap {
		return domain.DecodedItem{}, fmt.Errorf("%w: missing ExtraAttributes", domain.ErrDecode)
	}
	id, ok := extra.Lookup("id")
	if !ok || id.Kind != domain.KindString {
		return domain.DecodedItem{}, fmt.Errorf("%w: missing item id", domain.ErrDecode)
	}

	count := 1
	if c, ok := item.Lookup("Count"); ok && c.AsInt() > 0 {
		count = int(c.AsInt())
	}

	return domain.DecodedItem{
		TypeID: id.Str,
		Count:  count,
		Extra:  extra.Map,
		Tag:    tag,
	}, nil
}

// petInfo is the embedded JSON sub-document carried by pet items.
type petInfo struct {
	Type     string `json:"type"`
	Tier     string `json:"tier"`
	HeldItem string `json:"heldItem"`
}

// CanonicalName derives the canonical price-index key for a decoded item.
// It is a pure function of the item: identical payloads always map to
// identical keys.
//
// Enchanted books holding exactly one recognized enchantment at or above its
// minimum level are keyed by that enchantment so individual book prices are
// tracked separately. Pets are keyed by tier and species, with the tier-boost
// held item promoting EPIC to LEGENDARY. Everything else keys on the raw
// type identifier.
func CanonicalName(item domain.DecodedItem) string {
	switch item.TypeID {
	case typeEnchantedBook:
		ench, ok := item.Attr("enchantments")
		if !ok || ench.Kind != domain.KindMap || len(ench.Map) != 1 {
			return typeEnchantedBook
		}
		for name, level := range ench.Map {
			if _, ok := Recognized(name, int(level.AsInt())); ok {
				return strings.ToUpper(name)
			}
		}
		return typeEnchantedBook

	case typePet:
		info, ok := item.Attr("petInfo")
		if !ok || info.Kind != domain.KindString {
			return typePet
		}
		var pet petInfo
		if err := json.Unmarshal([]byte(info.Str), &pet); err != nil || pet.Type == "" || pet.Tier == "" {
			return typePet
		}
		tier := pet.Tier
		if pet.HeldItem == petTierBoost && tier == "EPIC" {
			tier = "LEGENDARY"
		}
		return tier + "_" + pet.Type + "_PET"

	default:
		return item.TypeID
	}
}
