package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/models"
)

var testNow = time.Date(2024, 6, 17, 14, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// fakeChains serves canned snapshots or errors per symbol
type fakeChains struct {
	snapshots map[string]*models.ChainSnapshot
	errs      map[string][]error // consumed in order, then snapshots apply
	delay     map[string]time.Duration
	block     map[string]chan struct{}

	mu       sync.Mutex
	calls    map[string]int
	inFlight int32
	maxSeen  int32
}

func newFakeChains() *fakeChains {
	return &fakeChains{
		snapshots: map[string]*models.ChainSnapshot{},
		errs:      map[string][]error{},
		delay:     map[string]time.Duration{},
		block:     map[string]chan struct{}{},
		calls:     map[string]int{},
	}
}

func (f *fakeChains) GetChain(ctx context.Context, symbol string) (*models.ChainSnapshot, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[symbol]++
	var err error
	if queue := f.errs[symbol]; len(queue) > 0 {
		err = queue[0]
		f.errs[symbol] = queue[1:]
	}
	f.mu.Unlock()

	if ch, ok := f.block[symbol]; ok {
		<-ch
	}
	if d := f.delay[symbol]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, models.NewFetchError("fake", symbol, models.FetchUnreachable, ctx.Err())
		}
	}

	if err != nil {
		return nil, err
	}
	snap, ok := f.snapshots[symbol]
	if !ok {
		return nil, models.NewFetchError("fake", symbol, models.FetchNotFound, nil)
	}
	cp := *snap
	cp.Puts = append([]models.OptionContract(nil), snap.Puts...)
	return &cp, nil
}

func (f *fakeChains) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func put(strike, bid, ask float64) models.OptionContract {
	return models.OptionContract{Strike: strike, Bid: bid, Ask: ask, Volume: 500, OpenInterest: 1000}
}

func putIV(strike, bid, ask, iv float64) models.OptionContract {
	p := put(strike, bid, ask)
	p.ImpliedVolatility = &iv
	return p
}

func chain(symbol string, price float64, earningsInDays *int, puts ...models.OptionContract) *models.ChainSnapshot {
	snap := &models.ChainSnapshot{
		Quote:      models.Quote{Symbol: symbol, Price: price},
		Expiration: testNow.Add(4*24*time.Hour - 14*time.Hour),
		Puts:       puts,
		Provider:   "fake",
	}
	if earningsInDays != nil {
		d := testNow.AddDate(0, 0, *earningsInDays)
		snap.Quote.EarningsDate = &d
	}
	return snap
}

func days(n int) *int { return &n }

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Scan.DefaultTickers = nil
	cfg.Scan.Timeout = "5s"
	return cfg
}

// recordingNarrative captures the focus ticker it was asked about
type recordingNarrative struct {
	mu        sync.Mutex
	focus     []string
	shortlist []models.ShortlistEntry
}

func (r *recordingNarrative) Merge(ctx context.Context, focus *models.TickerResult, shortlist []models.ShortlistEntry, target float64) models.Narrative {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = append(r.focus, focus.Symbol)
	r.shortlist = shortlist
	return models.Narrative{
		Recommendation: models.RecommendationWait,
		RiskLevel:      models.RiskLow,
		Warnings:       []string{},
		KeyFactors:     []string{},
		Source:         models.NarrativeSourceFallback,
	}
}

func newTestService(chains *fakeChains, narrative *recordingNarrative, cfg *common.Config) *Service {
	var svc *Service
	if narrative != nil {
		svc = NewService(chains, narrative, cfg, common.NewSilentLogger())
	} else {
		svc = NewService(chains, nil, cfg, common.NewSilentLogger())
	}
	svc.now = fixedClock
	svc.scanner.now = fixedClock
	return svc
}
