package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentFileName(t *testing.T) {
	testCases := []struct {
		name     string
		index    int
		title    string
		expected string
	}{
		{
			name:     "accented portuguese title",
			index:    0,
			title:    "Promoção Ação Café",
			expected: "000_promocao-acao-cafe.txt",
		},
		{
			name:     "plain ascii",
			index:    12,
			title:    "Shipping Policy",
			expected: "012_shipping-policy.txt",
		},
		{
			name:     "punctuation stripped",
			index:    3,
			title:    "FAQ: Returns & Refunds!",
			expected: "003_faq-returns-refunds.txt",
		},
		{
			name:     "hyphens survive",
			index:    1,
			title:    "Pre-Order Items",
			expected: "001_pre-order-items.txt",
		},
		{
			name:     "whitespace runs collapse",
			index:    2,
			title:    "  About \t Us  ",
			expected: "002_about-us.txt",
		},
		{
			name:     "empty title defaults",
			index:    7,
			title:    "",
			expected: "007_page.txt",
		},
		{
			name:     "non-latin only defaults",
			index:    4,
			title:    "商品一覧",
			expected: "004_page.txt",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ContentFileName(tc.index, tc.title))
		})
	}
}

func TestSlugifyTruncates(t *testing.T) {
	long := strings.Repeat("word ", 40) // 200 chars before slugging
	slug := slugify(long)
	assert.LessOrEqual(t, len(slug), maxSlugLength)
	assert.NotEmpty(t, slug)
}

func TestResolveLocale(t *testing.T) {
	assert.Equal(t, localeTable["pt"], resolveLocale("pt-BR"))
	assert.Equal(t, localeTable["pt"], resolveLocale("pt"))
	assert.Equal(t, localeTable["es"], resolveLocale("es-MX"))
	assert.Equal(t, localeTable["en"], resolveLocale("en-US"))
	assert.Equal(t, localeTable["en"], resolveLocale("fr"))
	assert.Equal(t, localeTable["en"], resolveLocale(""))
}

func TestManagerAgentName(t *testing.T) {
	assert.Equal(t, "Acme Store Manager", managerAgentName("acme-store"))
	assert.Equal(t, "My Shop Manager", managerAgentName("my_shop"))
}
