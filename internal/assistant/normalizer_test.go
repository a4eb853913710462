package assistant

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNumberWords(t *testing.T) {
	n := DefaultNormalizer()
	for i, w := range numberWords {
		got := n.Normalize(fmt.Sprintf("mark order number %s as done", w))
		assert.Equal(t, fmt.Sprintf("mark order number %d as done", i+1), got, w)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := DefaultNormalizer()
	inputs := []string{
		"Mark other seven as Finished",
		"cancel order to",
		"how many depending orders",
		"all the four is ready",
		"other two is waiting",
		"show me the new items",
		"Order fourteen done",
		"mark order 7 as done",
		"delete   the   audio  one",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), in)
	}
}

func TestNormalizeDigitsUnchanged(t *testing.T) {
	n := DefaultNormalizer()
	assert.Equal(t, "mark order 7 as done", n.Normalize("mark order 7 as done"))
	assert.Equal(t, "how many pending orders", n.Normalize("how many pending orders"))
}

func TestNormalizeCorrections(t *testing.T) {
	n := DefaultNormalizer()
	tests := []struct {
		in, want string
	}{
		{"Mark other seven as finished", "mark order 7 as done"},
		{"cancel order to", "cancelled order 2"},
		{"order for is ready", "order 4 is done"},
		{"order won is served", "order 1 is done"},
		{"how many depending orders", "how many pending orders"},
		{"void the item twelve", "cancelled the order 12"},
		{"show me the requests that are waiting", "show me the orders that are pending"},
		{"order fourteen", "order 14"},
		{"done", "done"},
		{"someone is here", "someone is here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Normalize(tt.in), tt.in)
	}
}

func TestNewNormalizerCustomRules(t *testing.T) {
	n, err := NewNormalizer([]Rule{{Pattern: `order (?:tree)`, Replacement: "order 3"}})
	require.NoError(t, err)

	assert.Equal(t, "order 3 is done", n.Normalize("order tree is ready"))
	// default mis-hearings are replaced, not extended
	assert.Equal(t, "depending on it", n.Normalize("depending on it"))

	_, err = NewNormalizer([]Rule{{Pattern: `(`, Replacement: "x"}})
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mis_hearings:
  - pattern: "order (?:to|too)"
    replacement: "order 2"
  - pattern: "depending"
    replacement: "pending"
`), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []Rule{
		{Pattern: "order (?:to|too)", Replacement: "order 2"},
		{Pattern: "depending", Replacement: "pending"},
	}, rules)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("mis_hearings: []\n"), 0o600))
	rules, err = LoadRules(empty)
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.NotNil(t, rules)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("mis_hearings:\n  - replacement: x\n"), 0o600))
	_, err = LoadRules(bad)
	assert.Error(t, err)

	_, err = LoadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
