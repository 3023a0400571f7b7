package engine

import (
	"math"

	"github.com/hailam/lazysearch/internal/board"
)

// Features switches parts of the search on and off. Everything is on in
// play; tests turn the forward pruning off to compare the search with a
// plain minimax.
type Features uint32

const (
	FeatureTTCutoff Features = 1 << iota
	FeatureRazoring
	FeatureFutility
	FeatureNullMove
	FeatureProbCut
	FeatureReductions  // IIR, LMR and the depth cut after alpha improves
	FeatureExtensions  // singular, check and history extensions
	FeatureMovePruning // move count, futility, SEE and history pruning in the move loop
	FeatureQuiescence
	FeatureCorrection
	FeatureCycleDetection
	FeatureDrawJitter
	FeatureAspiration

	AllFeatures = FeatureTTCutoff | FeatureRazoring | FeatureFutility | FeatureNullMove |
		FeatureProbCut | FeatureReductions | FeatureExtensions | FeatureMovePruning |
		FeatureQuiescence | FeatureCorrection | FeatureCycleDetection | FeatureDrawJitter |
		FeatureAspiration
)

// Has reports whether every feature in f2 is enabled.
func (f Features) Has(f2 Features) bool { return f&f2 == f2 }

// Params holds the tuning constants of the search. Margins are in
// centipawns; history thresholds are in history units.
type Params struct {
	// Razoring: eval < alpha - RazorBase - (RazorDepth - RazorCutoffs*(cutoffCnt > 3)) * depth^2
	RazorBase    int
	RazorDepth   int
	RazorCutoffs int

	// Reverse futility: (FutilityBase - FutilityNoTTCut*noTTCutNode) * (depth - improving)
	FutilityBase     int
	FutilityNoTTCut  int
	FutilityStatDiv  int
	FutilityMaxDepth int

	// Null move
	NullStatLimit      int
	NullDepthMargin    int
	NullMarginBase     int
	NullEvalDiv        int
	NullReductionBase  int
	NullReductionDepth int // depth divisor of the reduction
	NullVerifyDepth    int

	// ProbCut
	ProbCutMargin    int
	ProbCutImproving int
	ProbCutInCheck   int

	// Move loop pruning
	CaptureFutilityBase  int
	CaptureFutilityDepth int
	CaptureHistoryDiv    int
	CaptureSEEDepth      int
	ContHistPrune        int
	HistoryLMRDiv        int
	QuietFutilityBase    int
	QuietFutilityBetter  int
	QuietFutilityWorse   int
	QuietFutilityDepth   int
	QuietSEEDepth        int

	// Singular extension
	SingularMargin   int
	SingularTTPv     int
	DoubleExtMargin  int
	DoubleExtLimit   int
	CheckExtDepth    int
	QuietExtHistory  int
	RecaptureExtHist int

	// Late move reductions
	LMRBase        float64
	LMRDeltaScale  int
	LMROffset      int
	LMRNotImprove  int
	LMRStatOffset  int
	LMRStatDiv     int
	LMRDeeperBase  int
	LMRDeeperScale int

	// Depth cut after alpha improves, applied while beta and the score
	// stay in normal range.
	AlphaCutBetaMax  int
	AlphaCutValueMin int

	// Stat updates
	BonusMargin    int
	EvalOrderScale int
	EvalOrderMin   int
	EvalOrderMax   int

	// Quiescence
	QSFutilityMargin int
	QSSEEThreshold   int

	// Aspiration windows: delta = AspirationBase + avg^2 / AspirationDiv
	AspirationBase int
	AspirationDiv  int
}

// DefaultParams are scaled to a 100 centipawn pawn.
var DefaultParams = Params{
	RazorBase:    227,
	RazorDepth:   137,
	RazorCutoffs: 79,

	FutilityBase:     56,
	FutilityNoTTCut:  21,
	FutilityStatDiv:  674,
	FutilityMaxDepth: 9,

	NullStatLimit:      17496,
	NullDepthMargin:    11,
	NullMarginBase:     146,
	NullEvalDiv:        69,
	NullReductionBase:  4,
	NullReductionDepth: 3,
	NullVerifyDepth:    15,

	ProbCutMargin:    78,
	ProbCutImproving: 32,
	ProbCutInCheck:   204,

	CaptureFutilityBase:  114,
	CaptureFutilityDepth: 146,
	CaptureHistoryDiv:    14,
	CaptureSEEDepth:      90,
	ContHistPrune:        3752,
	HistoryLMRDiv:        7838,
	QuietFutilityBase:    27,
	QuietFutilityBetter:  60,
	QuietFutilityWorse:   34,
	QuietFutilityDepth:   57,
	QuietSEEDepth:        12,

	SingularMargin:   32,
	SingularTTPv:     28,
	DoubleExtMargin:  8,
	DoubleExtLimit:   11,
	CheckExtDepth:    10,
	QuietExtHistory:  4325,
	RecaptureExtHist: 4146,

	LMRBase:        20.37,
	LMRDeltaScale:  896,
	LMROffset:      1346,
	LMRNotImprove:  880,
	LMRStatOffset:  3817,
	LMRStatDiv:     14767,
	LMRDeeperBase:  25,
	LMRDeeperScale: 1,

	AlphaCutBetaMax:  6630,
	AlphaCutValueMin: -5550,

	BonusMargin:    83,
	EvalOrderScale: 26,
	EvalOrderMin:   -1652,
	EvalOrderMax:   1546,

	QSFutilityMargin: 87,
	QSSEEThreshold:   37,

	AspirationBase: 5,
	AspirationDiv:  7424,
}

// reductionTable depends on the thread count and is rebuilt when a
// search starts.
type reductionTable [board.MaxMoves]int

func newReductionTable(p *Params, threads int) *reductionTable {
	var r reductionTable
	for i := 1; i < len(r); i++ {
		r[i] = int((p.LMRBase + math.Log(float64(threads))/2) * math.Log(float64(i)))
	}
	return &r
}

func (w *Worker) reduction(improving bool, depth, moveCount, delta int) int {
	r := w.pool.reductions
	scale := r[min(depth, len(r)-1)] * r[min(moveCount, len(r)-1)]
	red := (scale + w.params.LMROffset - delta*w.params.LMRDeltaScale/max(w.rootDelta, 1)) / 1024
	if !improving && scale > w.params.LMRNotImprove {
		red++
	}
	return red
}

func futilityMoveCount(improving bool, depth int) int {
	if improving {
		return 3 + depth*depth
	}
	return (3 + depth*depth) / 2
}

func statBonus(depth int) int {
	return min(268*depth-352, 1153)
}

func statMalus(depth int) int {
	return min(400*depth-354, 1201)
}
