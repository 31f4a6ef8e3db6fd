package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/comeback-bonus/internal/domain"
)

var ErrUnknownPlayer = errors.New("player not in ledger")

// Entry is one player's accrued awards in append order.
type Entry struct {
	Player domain.Player  `json:"player"`
	Awards []domain.Award `json:"awards"`
}

// Ledger maps player identities to append-only award lists. It is filled in
// two phases: Seed every identity of the corpus, then Append awards.
type Ledger struct {
	order   []string
	entries map[string]*Entry
}

func New() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

// Seed creates empty entries for players not seen yet. Re-seeding an existing
// identity keeps its awards; an Excluded mark is sticky.
func (l *Ledger) Seed(players ...domain.Player) {
	for _, p := range players {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if e, ok := l.entries[name]; ok {
			e.Player.Excluded = e.Player.Excluded || p.Excluded
			continue
		}
		l.entries[name] = &Entry{Player: domain.Player{Name: name, Excluded: p.Excluded}, Awards: []domain.Award{}}
		l.order = append(l.order, name)
	}
}

func (l *Ledger) Append(name string, award domain.Award) error {
	e, ok := l.entries[strings.TrimSpace(name)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	e.Awards = append(e.Awards, award)
	return nil
}

func (l *Ledger) Has(name string) bool {
	_, ok := l.entries[strings.TrimSpace(name)]
	return ok
}

func (l *Ledger) Player(name string) (domain.Player, bool) {
	e, ok := l.entries[strings.TrimSpace(name)]
	if !ok {
		return domain.Player{}, false
	}
	return e.Player, true
}

// Awards returns a copy of the player's records.
func (l *Ledger) Awards(name string) []domain.Award {
	e, ok := l.entries[strings.TrimSpace(name)]
	if !ok {
		return nil
	}
	return append([]domain.Award{}, e.Awards...)
}

func (l *Ledger) Total(name string) int {
	total := 0
	for _, a := range l.Awards(name) {
		total += a.Points
	}
	return total
}

// Players lists identities in first-seen order.
func (l *Ledger) Players() []domain.Player {
	out := make([]domain.Player, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.entries[name].Player)
	}
	return out
}

func (l *Ledger) Len() int { return len(l.order) }

// Snapshot copies every entry in first-seen order.
func (l *Ledger) Snapshot() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, name := range l.order {
		e := l.entries[name]
		out = append(out, Entry{Player: e.Player, Awards: append([]domain.Award{}, e.Awards...)})
	}
	return out
}
