package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNightlyPages(t *testing.T) {
	nightly := NightlyPages()

	require.Len(t, nightly, NightlyPageCount)
	assert.Equal(t, "/", nightly[0].Path)
	assert.Equal(t, "homepage", nightly[0].PageType)
	assert.Equal(t, "/contact", nightly[NightlyPageCount-1].Path)

	// The nightly subset is a prefix of the full list.
	for i, p := range nightly {
		assert.Equal(t, PriorityPages[i], p)
	}
}

func TestPriorityPages_CoversFullList(t *testing.T) {
	assert.Greater(t, len(PriorityPages), NightlyPageCount)

	seen := map[string]bool{}
	for _, p := range PriorityPages {
		assert.NotEmpty(t, p.Path)
		assert.NotEmpty(t, p.PageType)
		assert.False(t, seen[p.Path], "duplicate path %s", p.Path)
		seen[p.Path] = true
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    string
		want    string
	}{
		{"root path", "https://clinic.test", "/", "https://clinic.test/"},
		{"simple path", "https://clinic.test", "/services", "https://clinic.test/services"},
		{"trailing slash on base", "https://clinic.test/", "/services", "https://clinic.test/services"},
		{"no leading slash on path", "https://clinic.test", "services", "https://clinic.test/services"},
		{"nested path", "https://clinic.test", "/locations/orlando", "https://clinic.test/locations/orlando"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.baseURL, tt.path))
		})
	}
}
