package types

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		raw  string
		want Period
	}{
		{"2021-03-01", "2021-03-01"},
		{" 2021-03-01 ", "2021-03-01"},
		{"2021-03-01T10:00:00", "2021-03-01"},
		{"2021-03-01 10:00:00", "2021-03-01"},
		{"2021/03/01", "2021-03-01"},
		{"2021-03", "2021-03-01"},
		{"2019-9-30", "2019-09-30"},
		{"2019/9/3", "2019-09-03"},
		{"2021-3", "2021-03-01"},
		{"2021Q2", "2021Q2"},
		{"2021-q4", "2021Q4"},
		{"2021 Q1", "2021Q1"},
		{"week 3", "week 3"},
	}
	for _, c := range cases {
		if got := ParsePeriod(c.raw); got != c.want {
			t.Errorf("ParsePeriod(%q): got %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestRankEvaluation_MarshalJSON(t *testing.T) {
	cases := []struct {
		name string
		in   RankEvaluation
		want string
	}{
		{"great", RankEvaluation{Result: Great, Rank: 95}, `{"result":"Great","rank":95}`},
		{"fraction", RankEvaluation{Result: Poor, Rank: 12.35}, `{"result":"Poor","rank":12.35}`},
		{"not available", Unavailable(), `"Not Available"`},
		{"zero value", RankEvaluation{}, `"Not Available"`},
		{"not enough data", RankEvaluation{Result: NotEnoughData}, `{"result":"Not Enough Data"}`},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.in)
		if err != nil {
			t.Fatalf("%s: marshal: %v", c.name, err)
		}
		if string(b) != c.want {
			t.Errorf("%s: got %s, want %s", c.name, b, c.want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(95.0); got != 95 {
		t.Errorf("Round2(95): got %v", got)
	}
	if got := Round2(12.3456); got != 12.35 {
		t.Errorf("Round2(12.3456): got %v, want 12.35", got)
	}
}

func TestParsePeriod_UnpaddedSortsChronologically(t *testing.T) {
	a, b := ParsePeriod("2019-9-30"), ParsePeriod("2019-12-31")
	if !(a < b) {
		t.Errorf("got %q >= %q, want chronological order", a, b)
	}
}
