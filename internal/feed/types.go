package feed

import (
	"encoding/base64"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
)

// APIAuctionPage is one page of the upstream auctions endpoint. TotalPages
// and LastUpdated are authoritative on page 0.
type APIAuctionPage struct {
	Success     bool         `json:"success"`
	Page        int          `json:"page"`
	TotalPages  int          `json:"totalPages"`
	LastUpdated int64        `json:"lastUpdated"` // epoch millis
	Auctions    []APIAuction `json:"auctions"`
}

// APIAuction is the wire form of a single listing.
type APIAuction struct {
	UUID       string  `json:"uuid"`
	ItemName   string  `json:"item_name"`
	ItemBytes  string  `json:"item_bytes"` // base64-encoded gzipped NBT
	StartBid   float64 `json:"starting_bid"`
	HighestBid float64 `json:"highest_bid_amount"`
	Start      int64   `json:"start"` // epoch millis
	End        int64   `json:"end"`   // epoch millis
	Bin        bool    `json:"bin"`
	Auctioneer string  `json:"auctioneer"`
}

// ToListing converts the wire auction to the domain form, decoding the
// base64 payload. The effective price is the higher of the starting bid and
// the highest bid so far.
func (a APIAuction) ToListing() (domain.Listing, error) {
	raw, err := base64.StdEncoding.DecodeString(a.ItemBytes)
	if err != nil {
		return domain.Listing{}, err
	}

	price := a.StartBid
	if a.HighestBid > price {
		price = a.HighestBid
	}

	return domain.Listing{
		ID:          a.UUID,
		ItemName:    a.ItemName,
		Price:       price,
		StartingBid: a.StartBid,
		HighestBid:  a.HighestBid,
		StackCount:  1, // refined after decode
		Seller:      a.Auctioneer,
		BuyItNow:    a.Bin,
		Start:       time.UnixMilli(a.Start),
		End:         time.UnixMilli(a.End),
		ItemBytes:   raw,
	}, nil
}

// apiBazaar is the upstream bazaar response: product id to order-book
// summaries.
type apiBazaar struct {
	Success  bool                  `json:"success"`
	Products map[string]apiProduct `json:"products"`
}

type apiProduct struct {
	SellSummary []apiOrderLevel `json:"sell_summary"`
	BuySummary  []apiOrderLevel `json:"buy_summary"`
}

type apiOrderLevel struct {
	PricePerUnit float64 `json:"pricePerUnit"`
	Amount       int64   `json:"amount"`
	Orders       int     `json:"orders"`
}
