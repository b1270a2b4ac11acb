package domain

import "time"

// Listing is one live auction-house listing. Price is the effective current
// price: the higher of the starting bid and the highest bid so far.
// ItemBytes retains the raw (base64-decoded) item payload for re-display and
// audit; EstimatedValue and ExtraValue are derived during ingestion.
type Listing struct {
	ID             string
	ItemName       string
	Price          float64
	StartingBid    float64
	HighestBid     float64
	StackCount     int
	Seller         string
	BuyItNow       bool
	Start          time.Time
	End            time.Time
	ItemBytes      []byte
	ExtraValue     float64
	EstimatedValue float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the listing's end time has passed at the given
// instant.
func (l Listing) Expired(now time.Time) bool {
	return l.End.Before(now)
}

// ListingFilter narrows ListActive queries. Zero values mean "no
// constraint".
type ListingFilter struct {
	MaxPrice  float64 // budget cap; 0 = unlimited
	MinProfit float64 // if > 0, estimated_value - price must reach this
	BinOnly   bool
	Limit     int
}
