package pipeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/comeback-bonus/internal/domain"
	"github.com/park285/comeback-bonus/internal/ledger"
	"github.com/park285/comeback-bonus/internal/metrics"
	"github.com/park285/comeback-bonus/internal/replay"
)

// White gives up a bishop and a rook, ending 8 points behind.
var rookAndBishopDown = []string{"e4", "e5", "Ba6", "Nxa6", "h4", "d5", "Rh3", "Bxh3", "Nc3"}

var quiet = []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}

func game(i int, white, black string, result domain.Result, moves []string) domain.GameRecord {
	return domain.GameRecord{
		Index:     i,
		Reference: "https://lichess.org/g" + string(rune('a'+i)),
		White:     white,
		Black:     black,
		Result:    result,
		Moves:     moves,
	}
}

func TestEligibleButLostEarnsNothing(t *testing.T) {
	report, err := New(Options{}, nil).Run([]domain.GameRecord{
		game(0, "alice", "bob", domain.BlackWon, rookAndBishopDown),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Awarded != 0 {
		t.Fatalf("expected no awards, got %d", report.Awarded)
	}
	if !report.Outcomes[0].Detection.Eligibility.White {
		t.Fatalf("white should be eligible")
	}
}

func TestEligibleDrawEarnsOnePoint(t *testing.T) {
	report, err := New(Options{}, nil).Run([]domain.GameRecord{
		game(0, "alice", "bob", domain.Draw, rookAndBishopDown),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []domain.Award{{Points: 1, GameReference: "https://lichess.org/ga"}}
	if diff := cmp.Diff(want, report.Ledger.Awards("alice")); diff != "" {
		t.Fatalf("alice awards (-want +got):\n%s", diff)
	}
	if len(report.Ledger.Awards("bob")) != 0 {
		t.Fatalf("bob should have nothing")
	}
}

func TestDisqualifiedBlackOverridesLoss(t *testing.T) {
	report, err := New(Options{DisqualifiedPlayers: []string{"cheater"}}, nil).Run([]domain.GameRecord{
		game(0, "alice", "cheater", domain.BlackWon, rookAndBishopDown),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Ledger.Total("alice"); got != 3 {
		t.Fatalf("alice total=%d want 3", got)
	}
	for _, s := range report.Standings {
		if s.Player == "cheater" {
			t.Fatalf("disqualified player must not rank")
		}
	}
	if !report.Ledger.Has("cheater") {
		t.Fatalf("disqualified player should still have a ledger entry")
	}
}

func TestDisqualifiedWhiteUsesStandardRule(t *testing.T) {
	report, err := New(Options{DisqualifiedPlayers: []string{"cheater"}}, nil).Run([]domain.GameRecord{
		game(0, "cheater", "bob", domain.BlackWon, rookAndBishopDown),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Awarded != 0 {
		t.Fatalf("expected standard rule (eligible but lost), got %d awards", report.Awarded)
	}
}

func TestMalformedGameIsReportedAndSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	p := New(Options{Metrics: m}, zap.New(core))

	bad := append(append([]string(nil), rookAndBishopDown...), "Ke9")
	report, err := p.Run([]domain.GameRecord{
		game(0, "alice", "bob", domain.Draw, bad),
		game(1, "carol", "dave", domain.Draw, rookAndBishopDown),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].Reference != "https://lichess.org/ga" {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if !errors.Is(report.Failures[0].Err, replay.ErrMalformedGame) {
		t.Fatalf("failure should wrap ErrMalformedGame: %v", report.Failures[0].Err)
	}
	if report.Ledger.Total("alice") != 0 || report.Ledger.Total("carol") != 1 {
		t.Fatalf("malformed game must not award; alice=%d carol=%d", report.Ledger.Total("alice"), report.Ledger.Total("carol"))
	}
	if logs.FilterMessage("comeback game not adjudicated").Len() != 1 {
		t.Fatalf("expected the malformed game to be logged")
	}
	if report.Replayed != 1 {
		t.Fatalf("replayed=%d", report.Replayed)
	}
}

func TestUnknownResultIsReported(t *testing.T) {
	g := game(0, "alice", "bob", "", rookAndBishopDown)
	g.Tags = map[string]string{"Result": "*"}
	report, err := New(Options{}, nil).Run([]domain.GameRecord{g})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, domain.ErrUnknownResult) {
		t.Fatalf("expected unknown-result failure, got %+v", report.Failures)
	}
}

func TestEveryParticipantHasLedgerEntry(t *testing.T) {
	games := []domain.GameRecord{
		game(0, "alice", "bob", domain.WhiteWon, quiet),
		game(1, "carol", "alice", domain.Draw, quiet),
		game(2, "dave", "erin INELIGIBLE", domain.BlackWon, quiet),
	}
	report, err := New(Options{IneligibleSuffix: "INELIGIBLE"}, nil).Run(games)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin INELIGIBLE"} {
		if !report.Ledger.Has(name) {
			t.Fatalf("missing ledger entry for %s", name)
		}
	}
	want := []ledger.Standing{
		{Rank: 1, Player: "alice"},
		{Rank: 1, Player: "bob"},
		{Rank: 1, Player: "carol"},
		{Rank: 1, Player: "dave"},
	}
	if diff := cmp.Diff(want, report.Standings); diff != "" {
		t.Fatalf("standings (-want +got):\n%s", diff)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	games := []domain.GameRecord{
		game(0, "alice", "bob", domain.Draw, rookAndBishopDown),
		game(1, "bob", "carol", domain.WhiteWon, quiet),
		game(2, "carol", "alice", domain.WhiteWon, rookAndBishopDown),
		game(3, "dave", "cheater", domain.BlackWon, rookAndBishopDown),
	}
	p := New(Options{DisqualifiedPlayers: []string{"cheater"}}, nil)
	first, err := p.Run(games)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := p.Run(games)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if diff := cmp.Diff(first.Ledger.Snapshot(), second.Ledger.Snapshot()); diff != "" {
		t.Fatalf("ledger differs between runs:\n%s", diff)
	}
	if diff := cmp.Diff(first.Standings, second.Standings); diff != "" {
		t.Fatalf("standings differ between runs:\n%s", diff)
	}
	if first.RunID == second.RunID {
		t.Fatalf("each run should get its own id")
	}
	// alice 1 (draw), carol 3 (win as white, eligible), dave 3 (disqualified opponent)
	if first.Ledger.Total("alice") != 1 || first.Ledger.Total("carol") != 3 || first.Ledger.Total("dave") != 3 {
		t.Fatalf("unexpected totals: %+v", first.Standings)
	}
}

func TestTraceGame(t *testing.T) {
	plies, err := New(Options{}, nil).TraceGame(game(0, "a", "b", domain.Draw, rookAndBishopDown))
	if err != nil {
		t.Fatalf("TraceGame: %v", err)
	}
	if last := plies[len(plies)-1].Material; last.Deficit(domain.White) != 8 {
		t.Fatalf("final white deficit=%d", last.Deficit(domain.White))
	}
}

func TestRunFailsOnUnseededPlayer(t *testing.T) {
	// A blank identity is never seeded but still earns the draw award.
	games := []domain.GameRecord{game(0, "  ", "bob", domain.Draw, rookAndBishopDown)}

	report, err := New(Options{}, nil).Run(games)
	if !errors.Is(err, ledger.ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
	if report != nil {
		t.Fatalf("expected no report on a fatal error, got %+v", report)
	}
}
