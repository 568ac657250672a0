package reagent_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reagent"
)

func TestTruncateAtStop(t *testing.T) {
	testCases := map[string]struct {
		text     string
		stop     []string
		expected string
	}{
		"no stop": {
			text:     "Action: a\nAction Input: b",
			stop:     nil,
			expected: "Action: a\nAction Input: b",
		},
		"cut at observation": {
			text:     "Action: a\nAction Input: b\nObservation: made up",
			stop:     []string{reagent.DefaultStopSequence},
			expected: "Action: a\nAction Input: b",
		},
		"earliest stop wins": {
			text:     "x END y STOP z",
			stop:     []string{"STOP", "END"},
			expected: "x ",
		},
		"empty stop is ignored": {
			text:     "abc",
			stop:     []string{""},
			expected: "abc",
		},
		"stop not present": {
			text:     "abc",
			stop:     []string{"zzz"},
			expected: "abc",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gt.Equal(t, reagent.TruncateAtStop(tc.text, tc.stop), tc.expected)
		})
	}
}
