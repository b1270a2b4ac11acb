package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
)

// fakeListingStore is an in-memory domain.ListingStore shared by the
// pipeline tests.
type fakeListingStore struct {
	rows    map[string]domain.Listing
	batches int
	fail    error
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{rows: map[string]domain.Listing{}}
}

func (s *fakeListingStore) UpsertBatch(_ context.Context, listings []domain.Listing) error {
	if s.fail != nil {
		return s.fail
	}
	s.batches++
	for _, l := range listings {
		if existing, ok := s.rows[l.ID]; ok {
			existing.Price = l.Price
			existing.StartingBid = l.StartingBid
			existing.HighestBid = l.HighestBid
			existing.End = l.End
			existing.ExtraValue = l.ExtraValue
			existing.EstimatedValue = l.EstimatedValue
			s.rows[l.ID] = existing
			continue
		}
		s.rows[l.ID] = l
	}
	return nil
}

func (s *fakeListingStore) GetByID(_ context.Context, id string) (domain.Listing, error) {
	l, ok := s.rows[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (s *fakeListingStore) ListActive(_ context.Context, now time.Time, f domain.ListingFilter) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, l := range s.rows {
		if l.Expired(now) {
			continue
		}
		if f.BinOnly && !l.BuyItNow {
			continue
		}
		if f.MaxPrice > 0 && l.Price > f.MaxPrice {
			continue
		}
		if f.MinProfit > 0 && l.EstimatedValue-l.Price < f.MinProfit {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeListingStore) ListExpired(_ context.Context, cutoff time.Time, _ int) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, l := range s.rows {
		if l.End.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeListingStore) PruneExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, l := range s.rows {
		if l.End.Before(cutoff) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeListingStore) Count(context.Context) (int64, error) {
	return int64(len(s.rows)), nil
}

type fakeNotified struct {
	seen map[string]bool
}

func (f *fakeNotified) MarkNotified(_ context.Context, id string) (bool, error) {
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

type fakeBus struct {
	published []domain.FlipCandidate
}

func (b *fakeBus) Publish(_ context.Context, c domain.FlipCandidate) error {
	b.published = append(b.published, c)
	return nil
}

func (b *fakeBus) Subscribe(context.Context) (<-chan []byte, func(), error) {
	return nil, func() {}, nil
}

type fakeAlerter struct {
	titles []string
}

func (a *fakeAlerter) Notify(_ context.Context, _, title, _ string) error {
	a.titles = append(a.titles, title)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDetector(store *fakeListingStore) (*Detector, *fakeBus, *fakeAlerter) {
	bus := &fakeBus{}
	alerter := &fakeAlerter{}
	d := NewDetector(store, &fakeNotified{seen: map[string]bool{}}, bus, alerter, DetectorConfig{
		MinProfit:        100_000,
		OutbidBuffer:     1.15,
		ModifierDiscount: 0.9,
		IconBaseURL:      "https://sky.example.com/item",
	}, testLogger())
	return d, bus, alerter
}

func TestDetectorEmitsUnderpricedBin(t *testing.T) {
	store := newFakeListingStore()
	end := time.Now().Add(time.Hour)
	store.rows["a1"] = domain.Listing{
		ID: "a1", ItemName: "ASPECT_OF_THE_END", Price: 500_000,
		BuyItNow: true, End: end, EstimatedValue: 1_000_000,
	}

	d, bus, alerter := testDetector(store)
	n, err := d.Scan(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(bus.published) != 1 || len(alerter.titles) != 1 {
		t.Fatalf("emitted=%d bus=%d alerts=%d", n, len(bus.published), len(alerter.titles))
	}

	c := bus.published[0]
	if c.ListingID != "a1" {
		t.Fatalf("listing id: %q", c.ListingID)
	}
	if c.DisplayName != "Aspect Of The End" {
		t.Fatalf("display name: %q", c.DisplayName)
	}
	if c.EstimatedValue != 1_000_000 {
		t.Fatalf("estimated value: %v", c.EstimatedValue)
	}
	if c.Profit != 500_000 {
		t.Fatalf("profit: %v", c.Profit)
	}
	if c.IconURL != "https://sky.example.com/item/ASPECT_OF_THE_END" {
		t.Fatalf("icon url: %q", c.IconURL)
	}
}

func TestDetectorNeverReEmits(t *testing.T) {
	store := newFakeListingStore()
	store.rows["a1"] = domain.Listing{
		ID: "a1", ItemName: "HYPERION", Price: 1,
		BuyItNow: true, End: time.Now().Add(time.Hour), EstimatedValue: 800_000_000,
	}

	d, bus, _ := testDetector(store)
	for i := 0; i < 3; i++ {
		if _, err := d.Scan(context.Background(), time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d times, want exactly once", len(bus.published))
	}
}

func TestDetectorRespectsMargin(t *testing.T) {
	store := newFakeListingStore()
	end := time.Now().Add(time.Hour)
	// Profit below the 100k minimum: value 1M, price 950k.
	store.rows["a1"] = domain.Listing{
		ID: "a1", ItemName: "X", Price: 950_000,
		BuyItNow: true, End: end, EstimatedValue: 1_000_000,
	}

	d, bus, _ := testDetector(store)
	if _, err := d.Scan(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(bus.published) != 0 {
		t.Fatal("listing within the margin must not be emitted")
	}
}

func TestDetectorDiscountsModifierValue(t *testing.T) {
	store := newFakeListingStore()
	end := time.Now().Add(time.Hour)
	// Undiscounted: 1M base + 2M extra - 100k margin = 2.9M threshold.
	// Discounted (0.9): 1M + 1.8M - 100k = 2.7M threshold.
	store.rows["a1"] = domain.Listing{
		ID: "a1", ItemName: "X", Price: 2_800_000,
		BuyItNow: true, End: end,
		ExtraValue: 2_000_000, EstimatedValue: 3_000_000,
	}

	d, bus, _ := testDetector(store)
	if _, err := d.Scan(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(bus.published) != 0 {
		t.Fatal("price above the discounted threshold must not be emitted")
	}

	// Below the discounted threshold it qualifies.
	l := store.rows["a1"]
	l.ID, l.Price = "a2", 2_500_000
	store.rows["a2"] = l
	if _, err := d.Scan(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(bus.published) != 1 || bus.published[0].ListingID != "a2" {
		t.Fatalf("published: %+v", bus.published)
	}
}

func TestDetectorOutbidBuffer(t *testing.T) {
	store := newFakeListingStore()
	end := time.Now().Add(time.Hour)
	// Auction at 900k highest bid: effective 900k*1.15 = 1.035M, above the
	// 1.1M-100k = 1M threshold... exactly above: not emitted.
	store.rows["a1"] = domain.Listing{
		ID: "a1", ItemName: "X", Price: 900_000, HighestBid: 900_000,
		BuyItNow: false, End: end, EstimatedValue: 1_100_000,
	}
	// Same numbers as BIN: 900k < 1M, emitted.
	store.rows["a2"] = domain.Listing{
		ID: "a2", ItemName: "X", Price: 900_000, HighestBid: 900_000,
		BuyItNow: true, End: end, EstimatedValue: 1_100_000,
	}

	d, bus, _ := testDetector(store)
	if _, err := d.Scan(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(bus.published) != 1 || bus.published[0].ListingID != "a2" {
		t.Fatalf("published: %+v", bus.published)
	}
}

func TestDetectorNoBidAuctionUsesStartingBid(t *testing.T) {
	store := newFakeListingStore()
	end := time.Now().Add(time.Hour)
	// No bids yet: highest bid is zero, so the effective price must fall
	// back to the starting bid. 5M starting bid on a 1M item is no flip.
	store.rows["a1"] = domain.Listing{
		ID: "a1", ItemName: "X", Price: 5_000_000,
		StartingBid: 5_000_000, HighestBid: 0,
		BuyItNow: false, End: end, EstimatedValue: 1_000_000,
	}
	// No bids but a starting bid well under value: emitted.
	store.rows["a2"] = domain.Listing{
		ID: "a2", ItemName: "X", Price: 500_000,
		StartingBid: 500_000, HighestBid: 0,
		BuyItNow: false, End: end, EstimatedValue: 1_000_000,
	}

	// An unfiltered ListActive must surface the overpriced row too; the
	// detector, not the store, decides it is no flip.
	active, err := store.ListActive(context.Background(), time.Now(), domain.ListingFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d, want both listings", len(active))
	}

	d, bus, _ := testDetector(store)
	if _, err := d.Scan(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(bus.published) != 1 || bus.published[0].ListingID != "a2" {
		t.Fatalf("published: %+v", bus.published)
	}
}

func TestDetectorSkipsExpired(t *testing.T) {
	store := newFakeListingStore()
	store.rows["a1"] = domain.Listing{
		ID: "a1", ItemName: "X", Price: 1,
		BuyItNow: true, End: time.Now().Add(-time.Minute), EstimatedValue: 1_000_000,
	}

	d, bus, _ := testDetector(store)
	if _, err := d.Scan(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(bus.published) != 0 {
		t.Fatal("expired listings must not be emitted")
	}
}
