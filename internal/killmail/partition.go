package killmail

import (
	"cmp"
	"slices"
)

// Record is one killmail row. Cells holds every raw cell in table order,
// the items column included; Items is its decoded form.
type Record struct {
	KillmailID  int64
	CharacterID int64
	Items       Items
	Cells       []string
}

// Partition is every record of one character, oldest killmail first.
type Partition struct {
	CharacterID int64
	Records     []Record
}

// GroupByCharacter partitions records by character. Partitions come back in
// ascending character order; records inside a partition are stably sorted by
// killmail id. The input slice is left untouched.
func GroupByCharacter(records []Record) []Partition {
	index := make(map[int64]int)
	var parts []Partition
	for _, rec := range records {
		i, ok := index[rec.CharacterID]
		if !ok {
			i = len(parts)
			index[rec.CharacterID] = i
			parts = append(parts, Partition{CharacterID: rec.CharacterID})
		}
		parts[i].Records = append(parts[i].Records, rec)
	}

	slices.SortFunc(parts, func(a, b Partition) int {
		return cmp.Compare(a.CharacterID, b.CharacterID)
	})
	for i := range parts {
		slices.SortStableFunc(parts[i].Records, func(a, b Record) int {
			return cmp.Compare(a.KillmailID, b.KillmailID)
		})
	}
	return parts
}

// ItemsSeq returns the partition's items in order.
func (p Partition) ItemsSeq() []Items {
	seq := make([]Items, len(p.Records))
	for i, rec := range p.Records {
		seq[i] = rec.Items
	}
	return seq
}
