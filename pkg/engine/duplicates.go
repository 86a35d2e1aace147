package engine

// DuplicateKey is a join key held by more than one row of a right-hand table.
// Every left row matching it is repeated once per right row.
type DuplicateKey struct {
	Key   any `json:"key"`
	Count int `json:"count"`
}

// DetectDuplicateKeys lists the keys of idx that occur on more than one row,
// in first-seen order.
func DetectDuplicateKeys(idx *KeyIndex) []DuplicateKey {
	var dups []DuplicateKey
	for _, k := range idx.Order {
		if n := len(idx.Rows[k]); n > 1 {
			dups = append(dups, DuplicateKey{Key: k, Count: n})
		}
	}
	return dups
}
