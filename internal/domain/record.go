package domain

import "fmt"

// Record is one dictionary-entry occurrence of a word form.
type Record struct {
	Index     string
	SubIndex  int
	Entry     string
	Gloss     string
	Word      string
	Homophone *int
	Position  int // 0-based row order in the source file
}

// Key returns the record's identity, unique across a dataset.
func (r *Record) Key() RecordKey {
	return RecordKey{Index: r.Index, SubIndex: r.SubIndex}
}

// Resolved returns true once a homophone-group label has been assigned.
func (r *Record) Resolved() bool {
	return r.Homophone != nil
}

// RecordKey identifies a Record by (index, sub_index).
type RecordKey struct {
	Index    string
	SubIndex int
}

// String renders the key in the "index-sub_index" display form.
func (k RecordKey) String() string {
	return fmt.Sprintf("%s-%d", k.Index, k.SubIndex)
}

// Group is the set of records sharing one word form. Derived from the
// record store, never stored itself. Members keep source order.
type Group struct {
	Word    string
	Members []Record
}

// Size returns the number of member records.
func (g *Group) Size() int {
	return len(g.Members)
}

// Keys returns the member identities in member order.
func (g *Group) Keys() []RecordKey {
	keys := make([]RecordKey, len(g.Members))
	for i := range g.Members {
		keys[i] = g.Members[i].Key()
	}
	return keys
}

// Progress counts labeled records against the whole dataset.
type Progress struct {
	Resolved int
	Total    int
}
