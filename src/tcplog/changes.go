package tcplog

// ChangePoints returns the indices of rows whose algorithm differs from the
// previous row. Row 0 is always included: it differs from "nothing".
func ChangePoints(records []Record) []int {
	if len(records) == 0 {
		return nil
	}
	out := []int{0}
	for i := 1; i < len(records); i++ {
		if records[i].Algorithm != records[i-1].Algorithm {
			out = append(out, i)
		}
	}
	return out
}

// ChangePoints returns nil when the log has no algorithm column.
func (l *Log) ChangePoints() []int {
	if !l.HasAlgorithm {
		return nil
	}
	return ChangePoints(l.Records)
}
