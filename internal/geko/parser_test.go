package geko

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_GekoWrapper(t *testing.T) {
	raw := `<geko><products><product><code>P1</code></product><product><code>P2</code></product></products></geko>`

	catalog, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "geko", catalog.Root)
	assert.Len(t, catalog.Products, 2)
	assert.Equal(t, "P1", catalog.Products[0]["code"])
}

func TestParse_OfferWrapper(t *testing.T) {
	raw := `<offer><products><product><code>P1</code></product></products></offer>`

	catalog, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "offer", catalog.Root)
	assert.Len(t, catalog.Products, 1)
}

func TestParse_SingleProductBecomesArray(t *testing.T) {
	// One <product> decodes as a map, not a slice; the parser must hide that.
	raw := `<geko><products><product><code>ONLY</code></product></products></geko>`

	catalog, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, catalog.Products, 1)
	assert.Equal(t, "ONLY", catalog.Products[0]["code"])
}

func TestParse_MixedTagCasing(t *testing.T) {
	raw := `<GEKO><Products><PRODUCT><Code>P1</Code></PRODUCT></Products></GEKO>`

	catalog, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, catalog.Products, 1)
	assert.Equal(t, "P1", catalog.Products[0]["code"])
}

func TestParse_AttributesMergedIntoElements(t *testing.T) {
	raw := `<geko><products><product code="P9"><name>Drill</name></product></products></geko>`

	catalog, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, catalog.Products, 1)
	assert.Equal(t, "P9", catalog.Products[0]["code"])
	assert.Equal(t, "Drill", catalog.Products[0]["name"])
}

func TestParse_UnrecognizedSchema(t *testing.T) {
	raw := `<catalog><item>1</item></catalog>`

	_, err := Parse(raw)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "unrecognized schema")
}

func TestParse_MalformedXML(t *testing.T) {
	_, err := Parse(`<geko><products>`)
	require.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParse_EmptyProducts(t *testing.T) {
	catalog, err := Parse(`<geko><products></products></geko>`)
	require.NoError(t, err)
	assert.Empty(t, catalog.Products)
}

func TestEnsureSlice(t *testing.T) {
	assert.Nil(t, EnsureSlice(nil))
	assert.Equal(t, []any{"a"}, EnsureSlice("a"))
	assert.Equal(t, []any{"a", "b"}, EnsureSlice([]any{"a", "b"}))
}
