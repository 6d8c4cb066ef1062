package analyzer

import (
	"testing"

	"voice-aftercare/model"
)

func TestParseYesNo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"네", model.AnswerYes},
		{"예 맞아요", model.AnswerYes},
		{"응", model.AnswerYes},
		{"엉", model.AnswerYes},
		{"맛아", model.AnswerYes},
		{"YES", model.AnswerYes},
		{"신청했어요", model.AnswerYes},
		{"아니요", model.AnswerNo},
		{"아님", model.AnswerNo},
		{"땡", model.AnswerNo},
		{"아직 안 했어요", model.AnswerNo},
		{"몰라요", model.AnswerUnconfirmed},
		{"", model.AnswerUnconfirmed},
		{"음", model.AnswerUnconfirmed},
		{"지급정지는 어떻게 하나요", model.AnswerUnconfirmed},
	}
	for _, tt := range tests {
		got := ParseAnswer(tt.in, model.KindYesNo)
		if got.Value != tt.want {
			t.Errorf("ParseAnswer(%q, yes_no) = %q, want %q", tt.in, got.Value, tt.want)
		}
	}
}

func TestParseYesNoTotalAndIdempotent(t *testing.T) {
	t.Parallel()

	allowed := map[string]bool{model.AnswerYes: true, model.AnswerNo: true, model.AnswerUnconfirmed: true}
	inputs := []string{"네", "아니", "그럴걸요", "???", "no thanks", "  ", "엄마가 보냈어요", "ㅇㅇ"}
	for _, in := range inputs {
		first := ParseAnswer(in, model.KindYesNo)
		second := ParseAnswer(in, model.KindYesNo)
		if !allowed[first.Value] {
			t.Errorf("ParseAnswer(%q) = %q, not a yes_no value", in, first.Value)
		}
		if first != second {
			t.Errorf("ParseAnswer(%q) not idempotent: %+v vs %+v", in, first, second)
		}
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in         string
		want       string
		amount     int64
		confidence float64
	}{
		{"15억", "1,500,000,000원", 1_500_000_000, confidenceHigh},
		{"300만원", "3,000,000원", 3_000_000, confidenceHigh},
		{"5천만원이요", "50,000,000원", 50_000_000, confidenceHigh},
		{"2백만 원 정도", "2,000,000원", 2_000_000, confidenceHigh},
		{"1,200,000원", "1,200,000원", 1_200_000, confidenceHigh},
		{"500", "500원", 500, confidenceMedium},
		{"잘 모르겠어요", "잘 모르겠어요", 0, confidenceLow},
		{"999999999999억", "999999999999억", 0, confidenceLow},
		{"99999999999999999999원", "99999999999999999999원", 0, confidenceLow},
	}
	for _, tt := range tests {
		got := ParseAnswer(tt.in, model.KindAmount)
		if got.Value != tt.want || got.Amount != tt.amount || got.Confidence != tt.confidence {
			t.Errorf("ParseAnswer(%q, amount) = %+v, want value=%q amount=%d confidence=%v",
				tt.in, got, tt.want, tt.amount, tt.confidence)
		}
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"25분 전에 다", "25분 전"},
		{"오늘 아침이요", "오늘"},
		{"어제요", "어제"},
		{"일주일 됐어요", "일주일 전"},
		{"한 달 전쯤", "한 달 전"},
		{"방금 전에요", "방금"},
		{"3시간 전", "3시간 전"},
		{"몇 분 전에 다", "몇 분 전"},
		{"기억이 안 나요", "기억이 안 나요"},
	}
	for _, tt := range tests {
		if got := ParseAnswer(tt.in, model.KindTime); got.Value != tt.want {
			t.Errorf("ParseAnswer(%q, time) = %q, want %q", tt.in, got.Value, tt.want)
		}
	}
}
