package ticket

import "testing"

func TestDisplay(t *testing.T) {
	cases := []struct {
		prefix   int
		sequence int
		display  int
		text     string
	}{
		{1, 1, 1001, "1001"},
		{2, 7, 2007, "2007"},
		{3, 42, 3042, "3042"},
		{4, 999, 4999, "4999"},
	}
	for _, tc := range cases {
		number := Encode(tc.prefix, tc.sequence)
		if number.Display() != tc.display {
			t.Fatalf("Encode(%d, %d).Display() = %d, want %d", tc.prefix, tc.sequence, number.Display(), tc.display)
		}
		if number.String() != tc.text {
			t.Fatalf("Encode(%d, %d).String() = %q, want %q", tc.prefix, tc.sequence, number.String(), tc.text)
		}
	}
}
