package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/hailam/lazysearch/internal/board"
)

// DefaultLichessURL is the public standard chess tablebase endpoint.
const DefaultLichessURL = "https://tablebase.lichess.ovh/standard"

// LichessProber uses the Lichess tablebase API for online lookups.
// Note: This requires network access and has rate limits, so it should
// be wrapped in a CachedProber.
type LichessProber struct {
	client    *http.Client
	baseURL   string
	maxPieces int
	attempts  uint
	delay     time.Duration
	timeout   time.Duration
}

// LichessOption customises a LichessProber.
type LichessOption func(*LichessProber)

// WithBaseURL points the prober at another server.
func WithBaseURL(u string) LichessOption {
	return func(lp *LichessProber) { lp.baseURL = u }
}

// WithRetries sets the number of attempts per probe and the initial
// delay between them.
func WithRetries(attempts uint, delay time.Duration) LichessOption {
	return func(lp *LichessProber) {
		lp.attempts = max(attempts, 1)
		lp.delay = delay
	}
}

// WithTimeout bounds a probe including its retries.
func WithTimeout(d time.Duration) LichessOption {
	return func(lp *LichessProber) { lp.timeout = d }
}

// NewLichessProber creates a new Lichess-based tablebase prober.
func NewLichessProber(opts ...LichessOption) *LichessProber {
	lp := &LichessProber{
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   DefaultLichessURL,
		maxPieces: 7, // Lichess supports up to 7-piece tablebases
		attempts:  3,
		delay:     200 * time.Millisecond,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(lp)
	}
	return lp
}

// LichessResponse is the part of the API answer the prober uses.
type LichessResponse struct {
	Category string `json:"category"` // "win", "cursed-win", "draw", "blessed-loss", "loss", ...
	DTZ      *int   `json:"dtz"`
}

// Probe returns not found on any network or server error.
func (lp *LichessProber) Probe(pos *board.Position) ProbeResult {
	if pos.PieceCount() > lp.maxPieces {
		return ProbeResult{Found: false}
	}

	ctx, cancel := context.WithTimeout(context.Background(), lp.timeout)
	defer cancel()

	fen := pos.FEN()
	resp, err := lp.Lookup(ctx, fen)
	if err != nil {
		log.Debug().Err(err).Str("fen", fen).Msg("tablebase-probe-failed")
		return ProbeResult{Found: false}
	}

	wdl, ok := categoryToWDL(resp.Category)
	if !ok {
		return ProbeResult{Found: false}
	}
	res := ProbeResult{Found: true, WDL: wdl}
	if resp.DTZ != nil {
		res.DTZ = *resp.DTZ
	}
	return res
}

// Lookup queries the API for a FEN. Rate limiting and server errors are
// retried with backoff; other failures are returned at once.
func (lp *LichessProber) Lookup(ctx context.Context, fen string) (*LichessResponse, error) {
	u := lp.baseURL + "?fen=" + url.QueryEscape(fen)

	var out LichessResponse
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := lp.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("tablebase server: %s", resp.Status)
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("tablebase server: %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decoding response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(lp.attempts),
		retry.Delay(lp.delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Debug().Err(err).Uint("n", n).Msg("tablebase-retry")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("lichess lookup: %w", err)
	}
	return &out, nil
}

func (lp *LichessProber) MaxPieces() int {
	return lp.maxPieces
}

func (lp *LichessProber) Available() bool {
	return true // Always available if network is up
}

// categoryToWDL maps an API category. "maybe" results lie within a
// rounding of the fifty-move limit and are taken as the cursed or
// blessed variant.
func categoryToWDL(category string) (WDL, bool) {
	switch category {
	case "win", "syzygy-win":
		return WDLWin, true
	case "maybe-win", "cursed-win":
		return WDLCursedWin, true
	case "draw":
		return WDLDraw, true
	case "maybe-loss", "blessed-loss":
		return WDLBlessedLoss, true
	case "loss", "syzygy-loss":
		return WDLLoss, true
	default:
		return WDLDraw, false
	}
}
