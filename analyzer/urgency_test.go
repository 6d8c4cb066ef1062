package analyzer

import (
	"strings"
	"testing"
)

func TestAssessUrgencyRange(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"?",
		"네",
		"그냥 혹시 궁금해서 모르겠어요?",
		"급해요 빨리 도와주세요 사기 당해서 돈을 송금 이체 보냈어요 계좌 의심 방금 오늘 10분 전",
		strings.Repeat("사기 ", 200),
		"hello world",
	}
	for _, in := range inputs {
		got := AssessUrgency(in)
		if got < 1 || got > 10 {
			t.Errorf("AssessUrgency(%q) = %d, outside [1,10]", in, got)
		}
	}
}

func TestAssessUrgency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantMin int
		wantMax int
	}{
		{"empty defaults to midpoint", "", 5, 5},
		{"whitespace defaults to midpoint", " \t ", 5, 5},
		{"scam with transfer and recency", "엄마가 사기를 당해서 500만원을 보냈어요 방금", 8, 10},
		{"minutes since transfer", "30분 전에 송금했어요", 8, 10},
		{"suspicious call is medium", "의심스러운 전화를 받았어요", 5, 7},
		{"keywords only", "급해요 도와주세요", 6, 6},
		{"curious question stays low", "혹시 궁금해서요?", 1, 1},
		{"short neutral", "음", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessUrgency(tt.in)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("AssessUrgency(%q) = %d, want [%d,%d]", tt.in, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestAssessUrgencyDeterministic(t *testing.T) {
	t.Parallel()

	in := "링크를 클릭했는데 앱 설치하라고 했어요"
	first := AssessUrgency(in)
	for i := 0; i < 5; i++ {
		if got := AssessUrgency(in); got != first {
			t.Fatalf("AssessUrgency not deterministic: %d then %d", first, got)
		}
	}
}
