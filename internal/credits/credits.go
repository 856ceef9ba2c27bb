// package credits meters batch enrichment with a per-user integer balance.
//
// A batch of N tracks costs ceil(N/10) credits. The whole cost is debited once,
// after the batch, and only when at least one track was newly enriched.
package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"golang.org/x/sync/semaphore"
)

// TracksPerCredit is how many requested tracks one credit covers.
const TracksPerCredit = 10

const defaultConcurrency = 4

// TrackEnricher enriches one track on behalf of a contributor.
type TrackEnricher interface {
	EnrichTrack(ctx context.Context, trackID, contributor string) (bool, error)
}

// Cost returns the credits a batch of n tracks costs.
func Cost(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: batch must hold at least one track", shared.ErrInvalidInput)
	}
	return (n + TracksPerCredit - 1) / TracksPerCredit, nil
}

// TrackFailure is one track of a batch that could not be enriched.
type TrackFailure struct {
	TrackID string `json:"track_id"`
	Error   string `json:"error"`
}

// BatchReport summarizes one [Ledger.EnrichBatch] call.
type BatchReport struct {
	UserID          string         `json:"user_id"`
	Requested       int            `json:"requested"`
	Cost            int            `json:"cost"`
	Charged         int            `json:"charged"`
	Enriched        int            `json:"enriched"`
	AlreadyEnriched int            `json:"already_enriched"`
	Failed          int            `json:"failed"`
	Balance         int            `json:"balance"`
	Failures        []TrackFailure `json:"failures,omitempty"`
	EnrichedIDs     []string       `json:"enriched_ids,omitempty"`
}

func (r *BatchReport) String() string {
	return fmt.Sprintf("%d requested, %d enriched, %d already enriched, %d failed; charged %d of %d credits, balance %d",
		r.Requested, r.Enriched, r.AlreadyEnriched, r.Failed, r.Charged, r.Cost, r.Balance)
}

// Quote is the price of a batch before any work is done.
type Quote struct {
	UserID   string   `json:"user_id"`
	TrackIDs []string `json:"track_ids"`
	Cost     int      `json:"cost"`
	Balance  int      `json:"balance"`
}

// Ledger gates batch enrichment behind the user's credit balance.
type Ledger struct {
	users       models.UserRepository
	enricher    TrackEnricher
	concurrency int64
	logger      *log.Logger
}

// NewLedger creates a ledger enriching at most concurrency tracks at once.
func NewLedger(users models.UserRepository, enricher TrackEnricher, concurrency int, logger *log.Logger) *Ledger {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Ledger{
		users:       users,
		enricher:    enricher,
		concurrency: int64(concurrency),
		logger:      shared.WithLogger(logger, "component", "credits"),
	}
}

// Balance returns the user's current credits.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	u, err := l.users.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// Grant tops up the user's balance and returns the new value.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: grant amount must be positive, got %d", shared.ErrInvalidInput, amount)
	}
	balance, err := l.users.AddCredits(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	l.logger.Info("credits granted", "user", userID, "amount", amount, "balance", balance)
	return balance, nil
}

// Price checks that userID can afford a batch of trackIDs without touching anything.
//
// Blank and repeated ids are dropped before pricing. A balance below the cost
// fails with [shared.ErrInsufficientCredits].
func (l *Ledger) Price(ctx context.Context, userID string, trackIDs []string) (*Quote, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	ids := distinct(trackIDs)
	cost, err := Cost(len(ids))
	if err != nil {
		return nil, err
	}

	balance, err := l.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, fmt.Errorf("%w: batch of %d tracks costs %d, balance is %d", shared.ErrInsufficientCredits, len(ids), cost, balance)
	}
	return &Quote{UserID: userID, TrackIDs: ids, Cost: cost, Balance: balance}, nil
}

// EnrichBatch enriches trackIDs for userID and charges the batch.
//
// The batch is priced with [Ledger.Price] first and rejected before touching
// any track when the user cannot afford it. Otherwise every track is
// attempted; individual failures are recorded in the report and do not abort
// the batch.
func (l *Ledger) EnrichBatch(ctx context.Context, userID string, trackIDs []string) (*BatchReport, error) {
	q, err := l.Price(ctx, userID, trackIDs)
	if err != nil {
		return nil, err
	}

	ids, cost := q.TrackIDs, q.Cost
	report := &BatchReport{UserID: userID, Requested: len(ids), Cost: cost, Balance: q.Balance}
	logger := l.logger.With("user", userID, "batch", len(ids), "cost", cost)
	logger.Info("enriching batch")

	l.enrichAll(ctx, userID, ids, report)

	if report.Enriched == 0 {
		logger.Info("batch enriched nothing new, not charged", "already", report.AlreadyEnriched, "failed", report.Failed)
		return report, nil
	}

	remaining, err := l.users.DebitCredits(ctx, userID, cost)
	if err != nil {
		// a concurrent batch spent the balance after the up-front check
		logger.Warn("failed to charge batch", "err", err)
		return report, fmt.Errorf("charge batch: %w", err)
	}
	report.Charged = cost
	report.Balance = remaining

	logger.Info("batch charged", "enriched", report.Enriched, "failed", report.Failed, "balance", remaining)
	return report, nil
}

// enrichAll runs the enricher over ids under the concurrency limit.
// Tracks not started before ctx ends are recorded as failed.
func (l *Ledger) enrichAll(ctx context.Context, userID string, ids []string, report *BatchReport) {
	sem := semaphore.NewWeighted(l.concurrency)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	record := func(trackID string, newly bool, err error) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case newly:
			report.Enriched++
			report.EnrichedIDs = append(report.EnrichedIDs, trackID)
			if err != nil {
				l.logger.Warn("track enriched with follow-up error", "track", trackID, "err", err)
			}
		case err != nil:
			report.Failed++
			report.Failures = append(report.Failures, TrackFailure{TrackID: trackID, Error: err.Error()})
		default:
			report.AlreadyEnriched++
		}
	}

	for _, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			record(id, false, err)
			continue
		}

		wg.Add(1)
		go func(trackID string) {
			defer wg.Done()
			defer sem.Release(1)

			newly, err := l.enricher.EnrichTrack(ctx, trackID, userID)
			record(trackID, newly, err)
		}(id)
	}

	wg.Wait()
}

// Err joins the report's failures into one error, or nil.
func (r *BatchReport) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %s", f.TrackID, f.Error))
	}
	return errors.Join(errs...)
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
