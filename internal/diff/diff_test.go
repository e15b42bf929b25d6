package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string
	Stack int
}

func itemKey(it item) string { return it.ID }

func itemEqual(a, b item) bool { return a == b }

func slotKey(it *item) (string, bool) {
	if it == nil {
		return "", false
	}
	return it.ID, true
}

func slotEqual(a, b *item) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func keys[K comparable, V any](entries []Entry[K, V]) []K {
	out := make([]K, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key)
	}
	return out
}

func TestCompareKeyed_LocationScenario(t *testing.T) {
	prev := []string{"Farm", "Town"}
	cur := []string{"Farm", "Mine"}

	d := CompareKeyed(prev, cur, func(s string) string { return s }, nil)

	assert.Equal(t, []string{"Mine"}, keys(d.Added))
	assert.Equal(t, []string{"Town"}, keys(d.Removed))
	assert.Empty(t, d.Changed)
}

func TestCompareKeyed_OrderIrrelevant(t *testing.T) {
	prev := []item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	cur := []item{{ID: "c"}, {ID: "a"}, {ID: "b"}}

	d := CompareKeyed(prev, cur, itemKey, itemEqual)
	assert.True(t, d.IsEmpty())
}

func TestCompareKeyed_Changed(t *testing.T) {
	prev := []item{{ID: "a", Stack: 1}}
	cur := []item{{ID: "a", Stack: 5}}

	d := CompareKeyed(prev, cur, itemKey, itemEqual)
	require.Len(t, d.Changed, 1)
	assert.Equal(t, "a", d.Changed[0].Key)
	assert.Equal(t, 1, d.Changed[0].Old.Stack)
	assert.Equal(t, 5, d.Changed[0].New.Stack)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
}

func TestCompareKeyed_Idempotent(t *testing.T) {
	snap := []item{{ID: "a", Stack: 2}, {ID: "b", Stack: 3}}
	d := CompareKeyed(snap, snap, itemKey, itemEqual)
	assert.True(t, d.IsEmpty())
}

func TestCompareKeyed_DuplicateKeysCollapse(t *testing.T) {
	prev := []item{{ID: "a"}, {ID: "a"}}
	cur := []item{{ID: "b"}, {ID: "b"}}

	d := CompareKeyed(prev, cur, itemKey, itemEqual)
	assert.Equal(t, []string{"b"}, keys(d.Added))
	assert.Equal(t, []string{"a"}, keys(d.Removed))
}

func TestCompareKeyed_Disjoint(t *testing.T) {
	cases := [][2][]item{
		{nil, {{ID: "a"}}},
		{{{ID: "a"}}, nil},
		{{{ID: "a"}, {ID: "b"}}, {{ID: "b", Stack: 1}, {ID: "c"}}},
		{{{ID: "x"}, {ID: "y"}, {ID: "z"}}, {{ID: "z"}, {ID: "w"}, {ID: "x"}}},
	}
	for _, c := range cases {
		d := CompareKeyed(c[0], c[1], itemKey, itemEqual)
		removed := make(map[string]bool)
		for _, r := range d.Removed {
			removed[r.Key] = true
		}
		for _, a := range d.Added {
			assert.False(t, removed[a.Key], "key %q both added and removed", a.Key)
		}
	}
}

func TestCompareKeyedMap_SortedOutput(t *testing.T) {
	prev := map[string]int{"farming": 1, "mining": 2, "combat": 0}
	cur := map[string]int{"farming": 2, "mining": 2, "fishing": 1}

	d := CompareKeyedMap(prev, cur, func(a, b int) bool { return a == b }, func(a, b string) bool { return a < b })

	assert.Equal(t, []string{"fishing"}, keys(d.Added))
	assert.Equal(t, []string{"combat"}, keys(d.Removed))
	require.Len(t, d.Changed, 1)
	assert.Equal(t, "farming", d.Changed[0].Key)
	assert.Equal(t, 1, d.Changed[0].Old)
	assert.Equal(t, 2, d.Changed[0].New)
}

func TestCompareSlots_MoveIsRemovalPlusAddition(t *testing.T) {
	axe := &item{ID: "axe", Stack: 1}
	prev := []*item{axe, nil, nil}
	cur := []*item{nil, nil, axe}

	d := CompareSlots(prev, cur, slotKey, slotEqual)

	require.Len(t, d.Removed, 1)
	require.Len(t, d.Added, 1)
	assert.Equal(t, 0, d.Removed[0].Index)
	assert.Equal(t, 2, d.Added[0].Index)
	assert.Empty(t, d.Changed)
}

func TestCompareSlots_ReplacedItem(t *testing.T) {
	prev := []*item{{ID: "axe"}}
	cur := []*item{{ID: "hoe"}}

	d := CompareSlots(prev, cur, slotKey, slotEqual)
	require.Len(t, d.Removed, 1)
	require.Len(t, d.Added, 1)
	assert.Equal(t, "axe", d.Removed[0].Key)
	assert.Equal(t, "hoe", d.Added[0].Key)
	assert.Equal(t, 0, d.Removed[0].Index)
	assert.Equal(t, 0, d.Added[0].Index)
}

func TestCompareSlots_StackChange(t *testing.T) {
	prev := []*item{{ID: "seed", Stack: 10}}
	cur := []*item{{ID: "seed", Stack: 7}}

	d := CompareSlots(prev, cur, slotKey, slotEqual)
	require.Len(t, d.Changed, 1)
	assert.Equal(t, 10, d.Changed[0].Old.Stack)
	assert.Equal(t, 7, d.Changed[0].New.Stack)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
}

func TestCompareSlots_GrowAndShrink(t *testing.T) {
	prev := []*item{{ID: "a"}}
	cur := []*item{{ID: "a"}, {ID: "b"}}

	d := CompareSlots(prev, cur, slotKey, slotEqual)
	require.Len(t, d.Added, 1)
	assert.Equal(t, 1, d.Added[0].Index)

	d = CompareSlots(cur, prev, slotKey, slotEqual)
	require.Len(t, d.Removed, 1)
	assert.Equal(t, "b", d.Removed[0].Key)
}

func TestCompareSlots_Idempotent(t *testing.T) {
	snap := []*item{{ID: "a", Stack: 1}, nil, {ID: "b", Stack: 3}}
	assert.True(t, CompareSlots(snap, snap, slotKey, slotEqual).IsEmpty())
}

func TestCompareValue(t *testing.T) {
	assert.False(t, CompareValue("en", "en").Changed)

	v := CompareValue("en", "fr")
	assert.True(t, v.Changed)
	assert.Equal(t, "en", v.Old)
	assert.Equal(t, "fr", v.New)
}
