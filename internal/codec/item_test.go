package codec

import (
	"testing"

	"github.com/arvida42/skyflip/internal/domain"
)

// itemPayload builds the standard listing wrapper around an item: a root
// compound holding an "i" list with one item compound.
func itemPayload(t *testing.T, count int8, extra comp, tagRest comp) []byte {
	t.Helper()
	tag := comp{"ExtraAttributes": extra}
	for k, v := range tagRest {
		tag[k] = v
	}
	return encodeNBT(t, comp{
		"i": []any{comp{
			"Count": count,
			"id":    int16(1),
			"tag":   tag,
		}},
	})
}

func TestDecodeItem(t *testing.T) {
	raw := itemPayload(t, 64, comp{"id": "ENCHANTED_LAPIS_BLOCK"}, nil)

	item, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if item.TypeID != "ENCHANTED_LAPIS_BLOCK" {
		t.Fatalf("type id: got %q", item.TypeID)
	}
	if item.Count != 64 {
		t.Fatalf("count: got %d", item.Count)
	}
}

func TestDecodeItemMissingStructure(t *testing.T) {
	cases := map[string]comp{
		"no item list": {"x": int32(1)},
		"empty list":   {"i": []any{}},
		"no tag":       {"i": []any{comp{"Count": int8(1)}}},
		"no extra":     {"i": []any{comp{"Count": int8(1), "tag": comp{}}}},
		"no id":        {"i": []any{comp{"Count": int8(1), "tag": comp{"ExtraAttributes": comp{}}}}},
	}
	for name, root := range cases {
		if _, err := Decode(encodeNBT(t, root)); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestDecodeItemDefaultCount(t *testing.T) {
	raw := encodeNBT(t, comp{
		"i": []any{comp{
			"tag": comp{"ExtraAttributes": comp{"id": "ASPECT_OF_THE_END"}},
		}},
	})
	item, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if item.Count != 1 {
		t.Fatalf("count: got %d, want 1", item.Count)
	}
}

func TestCanonicalNameDefault(t *testing.T) {
	raw := itemPayload(t, 1, comp{"id": "ASPECT_OF_THE_END"}, nil)
	item, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := CanonicalName(item); got != "ASPECT_OF_THE_END" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalNameEnchantedBook(t *testing.T) {
	cases := []struct {
		name     string
		enchants comp
		want     string
	}{
		{
			name:     "single qualifying enchant",
			enchants: comp{"sharpness": int32(6)},
			want:     "SHARPNESS",
		},
		{
			name:     "single enchant below minimum",
			enchants: comp{"sharpness": int32(5)},
			want:     "ENCHANTED_BOOK",
		},
		{
			name:     "single unrecognized enchant",
			enchants: comp{"cleave": int32(5)},
			want:     "ENCHANTED_BOOK",
		},
		{
			name:     "multiple enchants",
			enchants: comp{"sharpness": int32(6), "growth": int32(6)},
			want:     "ENCHANTED_BOOK",
		},
		{
			name:     "no enchants",
			enchants: comp{},
			want:     "ENCHANTED_BOOK",
		},
	}
	for _, tc := range cases {
		raw := itemPayload(t, 1, comp{"id": "ENCHANTED_BOOK", "enchantments": tc.enchants}, nil)
		item, err := Decode(raw)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := CanonicalName(item); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCanonicalNamePet(t *testing.T) {
	cases := []struct {
		name string
		info string
		want string
	}{
		{
			name: "plain pet",
			info: `{"type":"WOLF","tier":"RARE"}`,
			want: "RARE_WOLF_PET",
		},
		{
			name: "epic with tier boost",
			info: `{"type":"ENDER_DRAGON","tier":"EPIC","heldItem":"PET_ITEM_TIER_BOOST"}`,
			want: "LEGENDARY_ENDER_DRAGON_PET",
		},
		{
			name: "legendary with tier boost stays legendary",
			info: `{"type":"ENDER_DRAGON","tier":"LEGENDARY","heldItem":"PET_ITEM_TIER_BOOST"}`,
			want: "LEGENDARY_ENDER_DRAGON_PET",
		},
		{
			name: "rare with tier boost is not promoted",
			info: `{"type":"WOLF","tier":"RARE","heldItem":"PET_ITEM_TIER_BOOST"}`,
			want: "RARE_WOLF_PET",
		},
		{
			name: "other held item",
			info: `{"type":"WOLF","tier":"EPIC","heldItem":"PET_ITEM_LUCKY_CLOVER"}`,
			want: "EPIC_WOLF_PET",
		},
	}
	for _, tc := range cases {
		raw := itemPayload(t, 1, comp{"id": "PET", "petInfo": tc.info}, nil)
		item, err := Decode(raw)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := CanonicalName(item); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCanonicalNameDeterministic(t *testing.T) {
	raw := itemPayload(t, 1, comp{"id": "ENCHANTED_BOOK", "enchantments": comp{"growth": int32(6)}}, nil)
	first, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		again, err := Decode(raw)
		if err != nil {
			t.Fatal(err)
		}
		if CanonicalName(again) != CanonicalName(first) {
			t.Fatal("canonical name is not deterministic")
		}
	}
}

func TestLoreLines(t *testing.T) {
	raw := itemPayload(t, 1,
		comp{"id": "ASPECT_OF_THE_END"},
		comp{"display": comp{"Lore": []any{"§7Damage: §c+100", "§8DUNGEON SWORD"}}},
	)
	item, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	lines := item.LoreLines()
	if len(lines) != 2 || lines[1] != "§8DUNGEON SWORD" {
		t.Fatalf("lore: got %#v", lines)
	}
	if (domain.DecodedItem{}).LoreLines() != nil {
		t.Fatal("empty item should have nil lore")
	}
}
