package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/comeback-bonus/internal/bonus"
	"github.com/park285/comeback-bonus/internal/domain"
	"github.com/park285/comeback-bonus/internal/ledger"
	"github.com/park285/comeback-bonus/internal/metrics"
	"github.com/park285/comeback-bonus/internal/replay"
)

type Options struct {
	// DisqualifiedPlayers are removed for fair-play violations. Their games get
	// the special adjudication and they never rank.
	DisqualifiedPlayers []string
	// ExcludedPlayers accrue awards but are left off the leaderboard.
	ExcludedPlayers []string
	// IneligibleSuffix marks legacy identities such as "name INELIGIBLE" as excluded.
	IneligibleSuffix string
	LabelOpenings    bool
	Metrics          *metrics.Metrics
}

type Failure struct {
	Index     int    `json:"index"`
	Reference string `json:"game_ref"`
	White     string `json:"white"`
	Black     string `json:"black"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

type GameOutcome struct {
	Index     int
	Reference string
	Detection bonus.Detection
	Awards    []bonus.Entry
}

type Report struct {
	RunID     string
	Ledger    *ledger.Ledger
	Standings []ledger.Standing
	Games     int
	Replayed  int
	Awarded   int
	Outcomes  []GameOutcome
	Failures  []Failure
}

type Pipeline struct {
	replayer     *replay.Replayer
	disqualified map[string]struct{}
	excluded     map[string]struct{}
	suffix       string
	labels       bool
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		replayer:     replay.NewReplayer(logger),
		disqualified: nameSet(opts.DisqualifiedPlayers),
		excluded:     nameSet(opts.ExcludedPlayers),
		suffix:       strings.TrimSpace(opts.IneligibleSuffix),
		labels:       opts.LabelOpenings,
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if s := strings.TrimSpace(n); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func (p *Pipeline) isDisqualified(name string) bool {
	_, ok := p.disqualified[strings.TrimSpace(name)]
	return ok
}

func (p *Pipeline) isExcluded(name string) bool {
	name = strings.TrimSpace(name)
	if p.isDisqualified(name) {
		return true
	}
	if _, ok := p.excluded[name]; ok {
		return true
	}
	return p.suffix != "" && strings.HasSuffix(name, p.suffix)
}

// Run processes games sequentially in input order: it seeds the ledger with
// every participant, then replays and adjudicates each game.
func (p *Pipeline) Run(games []domain.GameRecord) (*Report, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Ledger: ledger.New(),
		Games:  len(games),
	}

	for _, g := range games {
		report.Ledger.Seed(
			domain.Player{Name: g.White, Excluded: p.isExcluded(g.White)},
			domain.Player{Name: g.Black, Excluded: p.isExcluded(g.Black)},
		)
	}
	p.metrics.SetPlayers(report.Ledger.Len())

	for _, g := range games {
		if err := p.processGame(report, g); err != nil {
			return nil, err
		}
	}

	report.Standings = ledger.Leaderboard(report.Ledger)
	p.logger.Info("comeback run finished",
		zap.String("run_id", report.RunID),
		zap.Int("games", report.Games),
		zap.Int("replayed", report.Replayed),
		zap.Int("failures", len(report.Failures)),
		zap.Int("awards", report.Awarded),
		zap.Int("players", report.Ledger.Len()),
	)
	return report, nil
}

func (p *Pipeline) processGame(report *Report, g domain.GameRecord) error {
	if g.Result == "" {
		p.fail(report, g, metrics.StatusSkipped, fmt.Errorf("%w: %q", domain.ErrUnknownResult, g.Tags["Result"]))
		return nil
	}

	det, err := bonus.DetectGame(p.replayer, g)
	if err != nil {
		if errors.Is(err, replay.ErrMalformedGame) {
			p.fail(report, g, metrics.StatusMalformed, err)
			return nil
		}
		return fmt.Errorf("game %s: %w", g.Reference, err)
	}
	report.Replayed++
	p.metrics.GameProcessed(metrics.StatusReplayed)

	blackDQ := p.isDisqualified(g.Black)
	if p.isDisqualified(g.White) && !blackDQ {
		p.logger.Info("disqualified player has white, standard rule applies",
			zap.String("game_ref", g.Reference),
			zap.String("white", g.White),
		)
	}

	entries := bonus.Adjudicate(bonus.AdjudicationInput{
		Eligibility:       det.Eligibility,
		Result:            g.Result,
		Reference:         g.Reference,
		White:             g.White,
		Black:             g.Black,
		BlackDisqualified: blackDQ,
	})
	for _, e := range entries {
		if err := report.Ledger.Append(e.Player, e.Award); err != nil {
			return fmt.Errorf("game %s: %w", g.Reference, err)
		}
		report.Awarded++
		p.metrics.AwardIssued(e.Award.Points)
	}
	report.Outcomes = append(report.Outcomes, GameOutcome{
		Index:     g.Index,
		Reference: g.Reference,
		Detection: det,
		Awards:    entries,
	})

	fields := []zap.Field{
		zap.String("game_ref", g.Reference),
		zap.String("white", g.White),
		zap.String("black", g.Black),
		zap.String("result", string(g.Result)),
		zap.Bool("white_eligible", det.Eligibility.White),
		zap.Bool("black_eligible", det.Eligibility.Black),
		zap.Int("white_at_ply", det.WhiteAt),
		zap.Int("black_at_ply", det.BlackAt),
		zap.Int("awards", len(entries)),
	}
	if p.labels {
		code, title := p.replayer.Opening(g.Moves)
		fields = append(fields, zap.String("eco_code", code), zap.String("eco_title", title))
	}
	p.logger.Debug("comeback game adjudicated", fields...)
	return nil
}

func (p *Pipeline) fail(report *Report, g domain.GameRecord, status string, err error) {
	report.Failures = append(report.Failures, Failure{
		Index:     g.Index,
		Reference: g.Reference,
		White:     g.White,
		Black:     g.Black,
		Reason:    err.Error(),
		Err:       err,
	})
	p.metrics.GameProcessed(status)
	p.logger.Warn("comeback game not adjudicated",
		zap.String("status", status),
		zap.String("game_ref", g.Reference),
		zap.Int("index", g.Index),
		zap.String("white", g.White),
		zap.String("black", g.Black),
		zap.Error(err),
	)
}

// TraceGame returns the per-ply material of one game.
func (p *Pipeline) TraceGame(g domain.GameRecord) ([]replay.Ply, error) {
	return p.replayer.Trace(g.Moves)
}
