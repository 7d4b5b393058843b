package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"add", "add"},
		{"ADD", "add"},
		{"  swap ", "swap"},
		{"pow", "pow"},
		{"power", "pow"},
		{"Power", "pow"},
		{"ｐｏｗ", "pow"},
		{"+", "add"},
		{"-", "sub"},
		{"*", "mul"},
		{"/", "div"},
		{"^", "pow"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Unknown(t *testing.T) {
	for _, in := range []string{"", "mod", "undo", "clear", "addd"} {
		_, ok := Normalize(in)
		assert.False(t, ok, "%q should not resolve", in)
	}
}

func TestLookup_UnknownCarriesRawName(t *testing.T) {
	_, err := Lookup("Modulo")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnknownOperation))
	assert.Contains(t, err.Error(), `"Modulo"`)
}

func TestOperations_CatalogOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"add", "sub", "mul", "div", "sqrt", "pow", "swap", "dup", "drop"},
		Operations(),
	)
}

func TestCatalog_Arity(t *testing.T) {
	arity := map[string][2]int{}
	for _, op := range Catalog() {
		arity[op.Name] = [2]int{op.Pop, op.Push}
	}

	assert.Equal(t, [2]int{2, 1}, arity["add"])
	assert.Equal(t, [2]int{2, 1}, arity["div"])
	assert.Equal(t, [2]int{1, 1}, arity["sqrt"])
	assert.Equal(t, [2]int{2, 1}, arity["pow"])
	assert.Equal(t, [2]int{2, 2}, arity["swap"])
	assert.Equal(t, [2]int{1, 2}, arity["dup"])
	assert.Equal(t, [2]int{1, 0}, arity["drop"])
}

func TestAliases(t *testing.T) {
	assert.Equal(t, []string{"^", "power"}, Aliases("pow"))
	assert.Equal(t, []string{"+"}, Aliases("add"))
	assert.Empty(t, Aliases("swap"))
}
