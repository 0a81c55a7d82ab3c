package board

import (
	"encoding/json"
	"fmt"
	"time"
)

// WagerRecord is one row of affiliate wager stats as reported upstream.
// The wager amount (minor units, i.e. cents) is pulled out for ranking;
// every other field the provider sends is carried through untouched.
type WagerRecord struct {
	Wager  int64
	Fields map[string]json.RawMessage
}

func (r *WagerRecord) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	raw, ok := m["wager"]
	if !ok {
		return fmt.Errorf("wager record missing wager field")
	}
	var wager int64
	if err := json.Unmarshal(raw, &wager); err != nil {
		return fmt.Errorf("wager record: non-integer wager: %w", err)
	}
	if wager < 0 {
		return fmt.Errorf("wager record: negative wager %d", wager)
	}

	delete(m, "wager")
	r.Wager = wager
	r.Fields = m
	return nil
}

func (r WagerRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(r.Fields)+1)
	for k, v := range r.Fields {
		m[k] = v
	}
	wager, err := json.Marshal(r.Wager)
	if err != nil {
		return nil, err
	}
	m["wager"] = wager
	return json.Marshal(m)
}

// Entry is a WagerRecord whose wager has been rendered as a two-decimal
// major-unit string for display, passthrough fields intact.
type Entry struct {
	Wager  string
	Fields map[string]json.RawMessage
}

func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(e.Fields)+1)
	for k, v := range e.Fields {
		m[k] = v
	}
	wager, err := json.Marshal(e.Wager)
	if err != nil {
		return nil, err
	}
	m["wager"] = wager
	return json.Marshal(m)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if raw, ok := m["wager"]; ok {
		if err := json.Unmarshal(raw, &e.Wager); err != nil {
			return fmt.Errorf("entry: non-string wager: %w", err)
		}
		delete(m, "wager")
	}
	e.Fields = m
	return nil
}

// Snapshot is a ranked leaderboard as of a point in time. BoundaryEnd is the
// weekly reset instant the board counts down to; on the wire it is
// countdownEndTime in Unix milliseconds, entries are summarizedBets.
type Snapshot struct {
	BoundaryEnd time.Time
	Entries     []Entry
}

type snapshotWire struct {
	CountdownEndTime int64   `json:"countdownEndTime"`
	SummarizedBets   []Entry `json:"summarizedBets"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	entries := s.Entries
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(snapshotWire{
		CountdownEndTime: s.BoundaryEnd.UnixMilli(),
		SummarizedBets:   entries,
	})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.BoundaryEnd = time.UnixMilli(w.CountdownEndTime).UTC()
	s.Entries = w.SummarizedBets
	return nil
}
