// Package present turns fetch results into what a caller sees: a state, a
// count message and the rows, plus navigation requests for selected rows.
//
// A Presenter is not safe for concurrent use; its owner confines it to one
// goroutine.
package present

import (
	"fmt"

	"github.com/sagerenn/dictd/internal/dict"
)

type State int

const (
	Idle State = iota
	Loading
	Displaying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Displaying:
		return "displaying"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is a snapshot of the presenter. Rows is never shared with the
// presenter.
type View struct {
	State   State        `json:"state"`
	Query   string       `json:"query"`
	Message string       `json:"message,omitempty"`
	Count   int          `json:"count"`
	Rows    []dict.Entry `json:"rows"`
}

// Navigation asks the caller to open the detail view of one entry.
type Navigation struct {
	ID   string `json:"id"`
	Word string `json:"word"`
}

type Presenter struct {
	state   State
	query   string
	message string
	rows    []dict.Entry
}

func New() *Presenter {
	return &Presenter{}
}

// Begin records a submitted query and moves to Loading. Rows of the previous
// query stay selectable until the fetch completes.
func (p *Presenter) Begin(query string) {
	p.state = Loading
	p.query = query
}

// OnFetchComplete shows rows for query. A nil rows is an absent result.
func (p *Presenter) OnFetchComplete(query string, rows []dict.Entry) {
	p.state = Displaying
	p.query = query
	if rows == nil {
		p.rows = nil
		p.message = noResultsMessage(query)
		return
	}
	p.rows = rows
	p.message = countMessage(len(rows), query)
}

// Select returns the navigation request for the row at pos.
func (p *Presenter) Select(pos int) (Navigation, error) {
	if pos < 0 || pos >= len(p.rows) {
		return Navigation{}, fmt.Errorf("position %d out of range [0,%d): %w", pos, len(p.rows), dict.ErrValidation)
	}
	r := p.rows[pos]
	return Navigation{ID: r.ID, Word: r.Word}, nil
}

// Reset drops the rows and returns to Idle.
func (p *Presenter) Reset() {
	p.state = Idle
	p.query = ""
	p.message = ""
	p.rows = nil
}

func (p *Presenter) State() State {
	return p.state
}

func (p *Presenter) View() View {
	rows := make([]dict.Entry, len(p.rows))
	copy(rows, p.rows)
	return View{
		State:   p.state,
		Query:   p.query,
		Message: p.message,
		Count:   len(p.rows),
		Rows:    rows,
	}
}
