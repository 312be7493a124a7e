package words

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_Pick(t *testing.T) {
	t.Parallel()

	c := NewCatalogFrom(map[string][]string{
		"animals": {"Cat", "Dog"},
		"food":    {"Pizza"},
	}, func(n int) int { return n - 1 })

	testCases := []struct {
		category string
		expected string
	}{
		{"animals", "Dog"},
		{"food", "Pizza"},
		{"all", "Pizza"},
		{"unknown", "Pizza"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, c.Pick(tc.category), tc.category)
	}
}

func TestCatalog_Category(t *testing.T) {
	t.Parallel()

	c := NewCatalog(nil)
	assert.Equal(t, "animals", c.Category("animals"))
	assert.Equal(t, CategoryAll, c.Category("spaceships"))
	assert.Equal(t, []string{"all", "actions", "animals", "food", "objects", "places"}, c.Categories())
}

func TestCatalog_NeverEmpty(t *testing.T) {
	t.Parallel()

	c := NewCatalog(nil)
	for _, category := range c.Categories() {
		for i := 0; i < 50; i++ {
			assert.NotEmpty(t, c.Pick(category))
		}
	}
}
