package utils

import "testing"

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"짧은 문장", 80, "짧은 문장"},
		{"가나다라마바사", 5, "가나..."},
		{"abc", 0, "abc"},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatWon(t *testing.T) {
	t.Parallel()

	tests := map[int64]string{
		0:          "0원",
		3000000:    "3,000,000원",
		1500000000: "1,500,000,000원",
	}
	for in, want := range tests {
		if got := FormatWon(in); got != want {
			t.Errorf("FormatWon(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestCompactAndContains(t *testing.T) {
	t.Parallel()

	if got := CompactString(" 한 달\t전 "); got != "한달전" {
		t.Errorf("CompactString = %q", got)
	}
	if !ContainsAny("지급정지 했어요", []string{"신고", "지급정지"}) {
		t.Error("ContainsAny missed a word")
	}
	if got := CountContains("그런데 그리고 하지만", []string{"그런데", "그리고", "또한"}); got != 2 {
		t.Errorf("CountContains = %d", got)
	}
	if got := NormalizeString("  YES "); got != "yes" {
		t.Errorf("NormalizeString = %q", got)
	}
}
