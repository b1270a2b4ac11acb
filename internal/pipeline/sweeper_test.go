package pipeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/arvida42/skyflip/internal/domain"
	"github.com/arvida42/skyflip/internal/feed"
	"github.com/arvida42/skyflip/internal/valuation"
)

// encodedItem builds the smallest valid item payload for the given type id,
// base64-encoded the way the upstream feed delivers it.
func encodedItem(t *testing.T, typeID string, count int8) string {
	t.Helper()

	var b bytes.Buffer
	writeStr := func(s string) {
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(s)))
		b.Write(l[:])
		b.WriteString(s)
	}

	b.WriteByte(10) // root compound
	writeStr("")
	b.WriteByte(9) // "i" list of compounds
	writeStr("i")
	b.WriteByte(10)
	b.Write([]byte{0, 0, 0, 1})
	// item compound
	b.WriteByte(1) // Count
	writeStr("Count")
	b.WriteByte(byte(count))
	b.WriteByte(10) // tag
	writeStr("tag")
	b.WriteByte(10) // ExtraAttributes
	writeStr("ExtraAttributes")
	b.WriteByte(8) // id
	writeStr("id")
	writeStr(typeID)
	b.WriteByte(0) // end ExtraAttributes
	b.WriteByte(0) // end tag
	b.WriteByte(0) // end item
	b.WriteByte(0) // end root

	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(b.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(out.Bytes())
}

type fakePages struct {
	pages       [][]feed.APIAuction
	lastUpdated int64
	fail        map[int]bool
	calls       int
}

func (f *fakePages) AuctionPage(_ context.Context, page int) (feed.APIAuctionPage, error) {
	f.calls++
	if f.fail[page] {
		return feed.APIAuctionPage{}, errors.New("upstream hiccup")
	}
	if page >= len(f.pages) {
		return feed.APIAuctionPage{}, errors.New("page out of range")
	}
	return feed.APIAuctionPage{
		Success:     true,
		Page:        page,
		TotalPages:  len(f.pages),
		LastUpdated: f.lastUpdated,
		Auctions:    f.pages[page],
	}, nil
}

type fixedEstimator struct{ est valuation.Estimate }

func (f fixedEstimator) Estimate(context.Context, domain.DecodedItem) valuation.Estimate {
	return f.est
}

type countingRefresher struct{ calls int }

func (r *countingRefresher) Refresh(context.Context, []domain.Listing, time.Time) error {
	r.calls++
	return nil
}

type countingScanner struct{ calls int }

func (s *countingScanner) Scan(context.Context, time.Time) (int, error) {
	s.calls++
	return 0, nil
}

func auction(t *testing.T, id, typeID string, bin bool) feed.APIAuction {
	t.Helper()
	return feed.APIAuction{
		UUID:      id,
		ItemName:  typeID,
		ItemBytes: encodedItem(t, typeID, 1),
		StartBid:  1000,
		Bin:       bin,
		End:       time.Now().Add(time.Hour).UnixMilli(),
	}
}

func newTestSweeper(pages *fakePages, store *fakeListingStore, cadence int) (*Sweeper, *countingRefresher, *countingScanner) {
	refresher := &countingRefresher{}
	scanner := &countingScanner{}
	s := NewSweeper(
		pages, store,
		fixedEstimator{valuation.Estimate{Base: 5000, Total: 5000}},
		refresher, scanner,
		NewPruneOnly(store),
		cadence, testLogger(),
	)
	return s, refresher, scanner
}

func TestSweepIngestsAllPages(t *testing.T) {
	pages := &fakePages{
		lastUpdated: 1000,
		pages: [][]feed.APIAuction{
			{auction(t, "a1", "ASPECT_OF_THE_END", true)},
			{auction(t, "a2", "HYPERION", true), auction(t, "a3", "WOLF_TOOTH", false)},
		},
	}
	store := newFakeListingStore()
	s, refresher, scanner := newTestSweeper(pages, store, 6)

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(store.rows) != 3 {
		t.Fatalf("stored %d listings, want 3", len(store.rows))
	}
	if store.batches != 2 {
		t.Fatalf("batches: got %d, want one per page", store.batches)
	}
	l := store.rows["a2"]
	if l.ItemName != "HYPERION" || l.EstimatedValue != 5000 {
		t.Fatalf("listing: %+v", l)
	}
	if refresher.calls != 1 {
		t.Fatalf("first sweep should sample, refresher calls=%d", refresher.calls)
	}
	if scanner.calls != 1 {
		t.Fatalf("scanner calls=%d", scanner.calls)
	}
}

func TestSweepUnchangedMarkerIsNoop(t *testing.T) {
	pages := &fakePages{
		lastUpdated: 1000,
		pages:       [][]feed.APIAuction{{auction(t, "a1", "ASPECT_OF_THE_END", true)}},
	}
	store := newFakeListingStore()
	s, _, scanner := newTestSweeper(pages, store, 6)

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	batches := store.batches

	// Upstream has not updated: the sweep performs zero writes.
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.batches != batches {
		t.Fatal("unchanged marker must not produce store writes")
	}
	if scanner.calls != 1 {
		t.Fatal("unchanged marker must not trigger a scan")
	}

	// Upstream updates again: the sweep resumes.
	pages.lastUpdated = 2000
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.batches != batches+1 {
		t.Fatal("updated marker should resume ingestion")
	}
}

func TestSweepToleratesPageFailure(t *testing.T) {
	pages := &fakePages{
		lastUpdated: 1000,
		fail:        map[int]bool{1: true},
		pages: [][]feed.APIAuction{
			{auction(t, "a1", "ASPECT_OF_THE_END", true)},
			{auction(t, "a2", "HYPERION", true)},
			{auction(t, "a3", "WOLF_TOOTH", true)},
		},
	}
	store := newFakeListingStore()
	s, _, _ := newTestSweeper(pages, store, 6)

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.rows["a1"]; !ok {
		t.Fatal("page 0 listing missing")
	}
	if _, ok := store.rows["a3"]; !ok {
		t.Fatal("page 2 listing missing")
	}
	if _, ok := store.rows["a2"]; ok {
		t.Fatal("failed page should contribute nothing")
	}
}

func TestSweepPage0FailureIsNoop(t *testing.T) {
	pages := &fakePages{
		lastUpdated: 1000,
		fail:        map[int]bool{0: true},
		pages:       [][]feed.APIAuction{{auction(t, "a1", "ASPECT_OF_THE_END", true)}},
	}
	store := newFakeListingStore()
	s, _, scanner := newTestSweeper(pages, store, 6)

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("page-0 failure must be a no-op, got %v", err)
	}
	if len(store.rows) != 0 || scanner.calls != 0 {
		t.Fatal("page-0 failure must not write or scan")
	}
}

func TestSweepSkipsMalformedPayloads(t *testing.T) {
	bad := auction(t, "bad", "X", true)
	bad.ItemBytes = base64.StdEncoding.EncodeToString([]byte("not an item"))
	notB64 := auction(t, "worse", "X", true)
	notB64.ItemBytes = "%%%not base64%%%"

	pages := &fakePages{
		lastUpdated: 1000,
		pages: [][]feed.APIAuction{
			{auction(t, "good", "ASPECT_OF_THE_END", true), bad, notB64},
		},
	}
	store := newFakeListingStore()
	s, _, _ := newTestSweeper(pages, store, 6)

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("stored %d listings, want only the decodable one", len(store.rows))
	}
	if _, ok := store.rows["good"]; !ok {
		t.Fatal("good listing missing")
	}
}

func TestSweepSamplingCadence(t *testing.T) {
	pages := &fakePages{
		lastUpdated: 1,
		pages:       [][]feed.APIAuction{{auction(t, "a1", "ASPECT_OF_THE_END", true)}},
	}
	store := newFakeListingStore()
	s, refresher, _ := newTestSweeper(pages, store, 3)

	for i := 0; i < 7; i++ {
		pages.lastUpdated++
		if err := s.Sweep(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	// Sweeps 0, 3, and 6 sample.
	if refresher.calls != 3 {
		t.Fatalf("refresher calls=%d, want 3 of 7 sweeps", refresher.calls)
	}
}

func TestSweepStorageFailureAbortsAndRetries(t *testing.T) {
	pages := &fakePages{
		lastUpdated: 1000,
		pages:       [][]feed.APIAuction{{auction(t, "a1", "ASPECT_OF_THE_END", true)}},
	}
	store := newFakeListingStore()
	store.fail = errors.New("pool exhausted")
	s, _, _ := newTestSweeper(pages, store, 6)

	if err := s.Sweep(context.Background()); err == nil {
		t.Fatal("storage failure should surface as a sweep error")
	}

	// The freshness marker must not advance, so the next tick retries.
	store.fail = nil
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.rows["a1"]; !ok {
		t.Fatal("retry after storage failure should ingest the snapshot")
	}
}
