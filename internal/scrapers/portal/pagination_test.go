package portal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePageSummary(t *testing.T) {
	testCases := []struct {
		text     string
		expected PaginationState
		ok       bool
	}{
		{text: "Page 1 of 3 (45 items)", expected: PaginationState{1, 3, 45}, ok: true},
		{text: "  Page 2 of 2 (1 item) ", expected: PaginationState{2, 2, 1}, ok: true},
		{text: "Page\u00a03 of\n12 (230 items)", expected: PaginationState{3, 12, 230}, ok: true},
		{text: "Page\u00a04\u00a0of\u00a012\u00a0(230\u00a0items)", expected: PaginationState{4, 12, 230}, ok: true},
		{text: "Page \u2007 5 of 6 (100\u202fitems)", expected: PaginationState{5, 6, 100}, ok: true},
		{text: "Page 4 of 3 (45 items)"},
		{text: "Page 0 of 3 (45 items)"},
		{text: "Page 1 of 3"},
		{text: ""},
	}

	for _, test := range testCases {
		t.Run(test.text, func(t *testing.T) {
			state, ok := ParsePageSummary(test.text)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.expected, state)
		})
	}
}

func TestPaginationStateIsLast(t *testing.T) {
	require.False(t, PaginationState{CurrentPage: 1, TotalPages: 2}.IsLast())
	require.True(t, PaginationState{CurrentPage: 2, TotalPages: 2}.IsLast())
}

func TestCheckAdvance(t *testing.T) {
	previous := PaginationState{CurrentPage: 2, TotalPages: 5, TotalItems: 90}

	require.NoError(t, checkAdvance(previous, PaginationState{3, 5, 90}, true))
	require.ErrorIs(t, checkAdvance(previous, PaginationState{2, 5, 90}, true), ErrNavigationAnomaly)
	require.ErrorIs(t, checkAdvance(previous, PaginationState{4, 5, 90}, true), ErrNavigationAnomaly)
	require.ErrorIs(t, checkAdvance(previous, PaginationState{3, 6, 91}, true), ErrNavigationAnomaly)
	require.ErrorIs(t, checkAdvance(previous, PaginationState{}, false), ErrNavigationAnomaly)
}
