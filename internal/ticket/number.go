package ticket

import "fmt"

// MaxSequence is the last sequence a counter can issue in one reset period.
// Sequence 1000 under prefix N would render identically to sequence 0 under
// prefix N+1, so issuance past this point is refused rather than wrapped.
const MaxSequence = 999

// Number is a public queue number: the counter prefix and the raw
// per-service sequence, shown to customers as prefix*1000+sequence.
type Number struct {
	Prefix   int `json:"prefix"`
	Sequence int `json:"sequence"`
}

func Encode(prefix, sequence int) Number {
	return Number{Prefix: prefix, Sequence: sequence}
}

// Display returns the numeric form, e.g. prefix 2 sequence 7 -> 2007.
func (n Number) Display() int {
	return n.Prefix*1000 + n.Sequence
}

func (n Number) String() string {
	return fmt.Sprintf("%d%03d", n.Prefix, n.Sequence)
}
