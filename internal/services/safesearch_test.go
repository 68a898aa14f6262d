package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeSearchRejectionRule(t *testing.T) {
	cases := []struct {
		name   string
		result SafeSearchResult
		unsafe bool
	}{
		{"all unknown", SafeSearchResult{}, false},
		{"everything unlikely", SafeSearchResult{Adult: "VERY_UNLIKELY", Violence: "UNLIKELY", Racy: "POSSIBLE"}, false},
		{"adult likely", SafeSearchResult{Adult: "LIKELY"}, true},
		{"violence very likely", SafeSearchResult{Violence: "VERY_LIKELY"}, true},
		{"racy likely", SafeSearchResult{Racy: "LIKELY"}, true},
		{"spoof never blocks", SafeSearchResult{Spoof: "VERY_LIKELY", Medical: "VERY_LIKELY"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.unsafe, tc.result.IsUnsafe())
		})
	}
}
