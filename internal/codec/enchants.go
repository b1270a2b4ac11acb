package codec

// Enchant describes one recognized enchantment: the minimum level at which a
// book of it carries standalone value, and whether its price scales
// exponentially with level (ultimate-class enchants and dragon_hunter double
// per level; everything else is priced flat once the minimum is met).
type Enchant struct {
	MinLevel    int
	Exponential bool
}

// Enchants is the fixed table of recognized enchantments, keyed by the
// lowercase identifier used inside item payloads.
var Enchants = map[string]Enchant{
	"impaling":           {MinLevel: 3},
	"luck":               {MinLevel: 6},
	"ultimate_combo":     {MinLevel: 1, Exponential: true},
	"ultimate_wise":      {MinLevel: 1, Exponential: true},
	"critical":           {MinLevel: 6},
	"looting":            {MinLevel: 4},
	"ender_slayer":       {MinLevel: 6},
	"scavenger":          {MinLevel: 4},
	"vampirism":          {MinLevel: 6},
	"experience":         {MinLevel: 4},
	"life_steal":         {MinLevel: 4},
	"execute":            {MinLevel: 5},
	"giant_killer":       {MinLevel: 6},
	"sharpness":          {MinLevel: 6},
	"power":              {MinLevel: 6},
	"growth":             {MinLevel: 6},
	"protection":         {MinLevel: 6},
	"smite":              {MinLevel: 6},
	"bane_of_arthropods": {MinLevel: 6},
	"angler":             {MinLevel: 6},
	"caster":             {MinLevel: 6},
	"frail":              {MinLevel: 6},
	"luck_of_the_sea":    {MinLevel: 6},
	"lure":               {MinLevel: 6},
	"magnet":             {MinLevel: 6},
	"spiked_hook":        {MinLevel: 6},
	"dragon_hunter":      {MinLevel: 1, Exponential: true},
}

// Recognized reports whether the enchantment is in the table and at or above
// its minimum level.
func Recognized(name string, level int) (Enchant, bool) {
	e, ok := Enchants[name]
	if !ok || level < e.MinLevel {
		return Enchant{}, false
	}
	return e, true
}
