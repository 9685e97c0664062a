package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceNewsScanner/internal/domain"
)

type namedSite string

func (n namedSite) Name() string { return string(n) }

func (namedSite) FetchHeadlines(context.Context, string, int) ([]domain.Headline, error) {
	return nil, nil
}

func (namedSite) FetchHeadlineRange(context.Context, string, int, int) ([]domain.Headline, error) {
	return nil, nil
}

func (namedSite) ParseArticle(context.Context, string) (domain.Article, error) {
	return domain.Article{}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedSite("udn"))
	reg.Register(namedSite("cna"))

	site, err := reg.Resolve("udn")
	require.NoError(t, err)
	assert.Equal(t, "udn", site.Name())
	assert.Equal(t, []string{"cna", "udn"}, reg.Names())

	_, err = reg.Resolve("ltn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ltn")
}

func TestRegistryZeroValue(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(namedSite("udn"))

	_, err := reg.Resolve("udn")
	assert.NoError(t, err)
}
