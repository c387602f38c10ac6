package storage

import "strconv"

// selectPage picks up to limit ids newest-first from an append-ordered id
// slice, strictly older than beforeSeq (0 = from the newest). Ids parse as
// int64 snowflakes; append order and numeric order agree.
func selectPage(ids []string, limit int, beforeSeq int64) []string {
	out := make([]string, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		if beforeSeq > 0 {
			seq, err := strconv.ParseInt(ids[i], 10, 64)
			if err != nil || seq >= beforeSeq {
				continue
			}
		}
		out = append(out, ids[i])
	}
	return out
}
