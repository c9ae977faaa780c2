package report

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Entry is one key of an Accumulator with its summed amount.
type Entry struct {
	Name   string
	Amount decimal.Decimal
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}{e.Name, e.Amount.InexactFloat64()})
}

// Accumulator sums decimal amounts per key and remembers the order in which
// keys were first seen. The zero value is ready to use.
type Accumulator struct {
	keys []string
	sums map[string]decimal.Decimal
}

// Add adds amount to key, registering the key on first use.
func (a *Accumulator) Add(key string, amount decimal.Decimal) {
	a.Ensure(key)
	a.sums[key] = a.sums[key].Add(amount)
}

// Ensure registers key with a zero sum if it is not present yet.
func (a *Accumulator) Ensure(key string) {
	if a.sums == nil {
		a.sums = make(map[string]decimal.Decimal)
	}
	if _, ok := a.sums[key]; !ok {
		a.keys = append(a.keys, key)
		a.sums[key] = decimal.Zero
	}
}

func (a Accumulator) Get(key string) decimal.Decimal {
	return a.sums[key]
}

func (a Accumulator) Has(key string) bool {
	_, ok := a.sums[key]
	return ok
}

func (a Accumulator) Len() int {
	return len(a.keys)
}

// Keys returns the keys in insertion order.
func (a Accumulator) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Entries returns all keys with their sums in insertion order.
func (a Accumulator) Entries() []Entry {
	out := make([]Entry, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, Entry{Name: k, Amount: a.sums[k]})
	}
	return out
}

func (a Accumulator) Total() decimal.Decimal {
	total := decimal.Zero
	for _, k := range a.keys {
		total = total.Add(a.sums[k])
	}
	return total
}

// Max returns the key with the largest sum. Ties go to the key seen first.
func (a Accumulator) Max() (Entry, bool) {
	var best Entry
	found := false
	for _, k := range a.keys {
		v := a.sums[k]
		if !found || v.GreaterThan(best.Amount) {
			best = Entry{Name: k, Amount: v}
			found = true
		}
	}
	return best, found
}

// Ranked returns up to n entries ordered by descending sum; ties keep
// insertion order. n <= 0 returns every entry.
func (a Accumulator) Ranked(n int) []Entry {
	entries := a.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Amount.GreaterThan(entries[j].Amount)
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// MarshalJSON writes an object whose members follow insertion order.
func (a Accumulator) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(a.sums[k].InexactFloat64(), 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Breakdown is an ordered label -> Accumulator matrix.
type Breakdown struct {
	labels []string
	rows   map[string]*Accumulator
}

// Row returns the accumulator for label, creating it on first use.
func (b *Breakdown) Row(label string) *Accumulator {
	if b.rows == nil {
		b.rows = make(map[string]*Accumulator)
	}
	row, ok := b.rows[label]
	if !ok {
		row = &Accumulator{}
		b.rows[label] = row
		b.labels = append(b.labels, label)
	}
	return row
}

func (b Breakdown) Labels() []string {
	return append([]string(nil), b.labels...)
}

// Get returns the row for label, or an empty accumulator.
func (b Breakdown) Get(label string) Accumulator {
	if row, ok := b.rows[label]; ok {
		return *row
	}
	return Accumulator{}
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range b.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		row, err := b.rows[label].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(row)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
