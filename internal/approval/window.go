package approval

// window is a half-open index range [start, end) into the ordered pending
// slice.
type window struct {
	start int
	end   int
}

// windows cuts the ordered identifier sequence into overlapping windows of at
// most size items. A window is truncated at the first non-consecutive
// identifier pair, and iteration resumes at the item after the break; grouping
// across such a gap is not meaningful because the missing identifiers were
// already taken out of consideration. Windows with fewer than two items are
// dropped. An overlap at or above size is forced down to size-1 so iteration
// always makes forward progress.
func windows(ids []int64, size, overlap int) []window {
	if size < 2 || len(ids) == 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap

	var out []window
	pos := 0
	for pos < len(ids) {
		end := pos + size
		if end > len(ids) {
			end = len(ids)
		}

		gap := -1
		for j := pos + 1; j < end; j++ {
			if ids[j] != ids[j-1]+1 {
				gap = j
				break
			}
		}
		if gap >= 0 {
			if gap-pos >= 2 {
				out = append(out, window{start: pos, end: gap})
			}
			pos = gap
			continue
		}

		if end-pos >= 2 {
			out = append(out, window{start: pos, end: end})
		}
		if end == len(ids) {
			break
		}
		pos += step
	}
	return out
}
