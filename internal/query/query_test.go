package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargets(t *testing.T) {
	testCases := []struct {
		name     string
		custom   string
		selected []string
		expected []Target
	}{
		{
			name:     "custom first then selections in order",
			custom:   "9.9.9.9",
			selected: []string{"google", "cloudflare"},
			expected: []Target{
				{Value: "9.9.9.9", Custom: true},
				{Value: "google"},
				{Value: "cloudflare"},
			},
		},
		{
			name:     "blank custom is skipped",
			custom:   "   ",
			selected: []string{"ali"},
			expected: []Target{{Value: "ali"}},
		},
		{
			name:     "custom is trimmed",
			custom:   " 1.0.0.1 ",
			expected: []Target{{Value: "1.0.0.1", Custom: true}},
		},
		{
			name:     "duplicates are kept",
			selected: []string{"google", "google"},
			expected: []Target{{Value: "google"}, {Value: "google"}},
		},
		{
			name:     "nothing selected",
			expected: []Target{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Targets(tc.custom, tc.selected))
		})
	}
}

func TestBuild(t *testing.T) {
	targets := Targets("9.9.9.9", []string{"google"})
	reqs := Build("example.com", "A", targets)

	require.Len(t, reqs, 2)
	assert.Equal(t, Request{Domain: "example.com", RecordType: "A", Target: Target{Value: "9.9.9.9", Custom: true}}, reqs[0])
	assert.Equal(t, "google", reqs[1].Target.String())

	// requests are values; editing the source slice leaves them alone
	targets[1].Value = "open"
	assert.Equal(t, "google", reqs[1].Target.Value)
}

func TestSelection(t *testing.T) {
	var s Selection
	_, ok := s.Get()
	assert.False(t, ok)
	assert.Empty(t, s.Targets())

	s.Select("google")
	s.Select("cloudflare")
	key, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "cloudflare", key)
	assert.Equal(t, []Target{{Value: "cloudflare"}}, s.Targets())

	s.Clear()
	_, ok = s.Get()
	assert.False(t, ok)

	assert.Equal(t, []Target{{Value: "ali"}}, Select("ali").Targets())
}
