package filter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/achados/internal/model"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func item(id, title string, createdAt time.Time) model.Item {
	return model.Item{
		ID:        id,
		Title:     title,
		Type:      model.ItemTypeLost,
		Status:    model.ItemStatusOpen,
		Category:  "Acessórios",
		Campus:    "Asa Norte",
		Building:  "Bloco A",
		CreatedAt: createdAt,
	}
}

func ids(items []model.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func snapshot() []model.Item {
	a := item("a", "Mochila Preta Nike", t0.Add(-2*time.Hour))
	b := item("b", "Garrafa azul", t0)
	b.Type = model.ItemTypeFound
	b.Campus = "Gama"
	b.Description = "deixada perto da mochila"
	c := item("c", "Chave do carro", t0.Add(-time.Hour))
	c.Category = "chaves"
	c.Building = "Biblioteca"
	return []model.Item{a, b, c}
}

func TestApply_RecentOrdering(t *testing.T) {
	// Items created at T-2h, T, T-1h come back as T, T-1h, T-2h.
	res := Apply(snapshot(), State{Sort: SortRecent})
	assert.Equal(t, []string{"b", "c", "a"}, ids(res.Items))
	assert.Equal(t, 3, res.Count)
}

func TestApply_ZeroStateIsRecent(t *testing.T) {
	assert.Equal(t, []string{"b", "c", "a"}, ids(Apply(snapshot(), State{}).Items))
}

func TestApply_RelevantKeepsSnapshotOrder(t *testing.T) {
	res := Apply(snapshot(), State{Sort: SortRelevant})
	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Items))
}

func TestApply_StableTies(t *testing.T) {
	snap := []model.Item{
		item("x", "um", t0),
		item("y", "dois", t0),
		item("z", "tres", t0.Add(time.Minute)),
		item("w", "quatro", t0),
	}
	res := Apply(snap, State{Sort: SortRecent})
	assert.Equal(t, []string{"z", "x", "y", "w"}, ids(res.Items))
}

func TestApply_CaseInsensitiveText(t *testing.T) {
	res := Apply(snapshot(), State{Query: "mochila"})
	// "a" by title, "b" by description.
	assert.ElementsMatch(t, []string{"a", "b"}, ids(res.Items))

	res = Apply(snapshot(), State{Query: "MOCHILA PRETA"})
	assert.Equal(t, []string{"a"}, ids(res.Items))

	res = Apply(snapshot(), State{Query: "biblio"})
	assert.Equal(t, []string{"c"}, ids(res.Items))
}

func TestApply_Selectors(t *testing.T) {
	snap := snapshot()

	tests := []struct {
		name  string
		state State
		want  []string
	}{
		{"campus", State{Campus: "Gama"}, []string{"b"}},
		{"campus todos", State{Campus: "todos"}, []string{"b", "c", "a"}},
		{"category case-insensitive", State{Category: "CHAVES"}, []string{"c"}},
		{"category all", State{Category: "all"}, []string{"b", "c", "a"}},
		{"type lost", State{Type: "lost"}, []string{"c", "a"}},
		{"type FOUND", State{Type: "FOUND"}, []string{"b"}},
		{"type all", State{Type: "all"}, []string{"b", "c", "a"}},
		{"combined", State{Type: "LOST", Category: "acessórios", Query: "nike"}, []string{"a"}},
		{"no match", State{Campus: "Planaltina"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(snap, tt.state)
			assert.Equal(t, tt.want, ids(res.Items))
			assert.Equal(t, len(tt.want), res.Count)
		})
	}
}

func TestApply_ExcludesNonOpen(t *testing.T) {
	snap := snapshot()
	snap[0].Status = model.ItemStatusResolved
	snap[1].Status = model.ItemStatusExpired

	assert.Equal(t, []string{"c"}, ids(Apply(snap, State{}).Items))
}

func TestApply_Deterministic(t *testing.T) {
	snap := snapshot()
	st := State{Query: "a", Sort: SortRecent}
	first := Apply(snap, st)
	for range 10 {
		assert.Equal(t, first, Apply(snap, st))
	}
}

func TestApply_DoesNotMutateSnapshot(t *testing.T) {
	snap := snapshot()
	Apply(snap, State{Sort: SortRecent})
	assert.Equal(t, []string{"a", "b", "c"}, ids(snap))
}

// Adding a selector never grows the result.
func TestApply_Monotonic(t *testing.T) {
	snap := snapshot()
	for i := range 20 {
		snap = append(snap, item(fmt.Sprintf("g%d", i), fmt.Sprintf("Objeto %d", i), t0.Add(-time.Duration(i)*time.Minute)))
	}

	states := []State{
		{},
		{Query: "o"},
		{Query: "o", Campus: "Asa Norte"},
		{Query: "o", Campus: "Asa Norte", Category: "acessórios"},
		{Query: "o", Campus: "Asa Norte", Category: "acessórios", Type: "LOST"},
		{Query: "objeto 1", Campus: "Asa Norte", Category: "acessórios", Type: "LOST"},
	}

	prev := Apply(snap, states[0])
	for _, st := range states[1:] {
		cur := Apply(snap, st)
		require.LessOrEqual(t, cur.Count, prev.Count, "state %+v", st)
		for _, id := range ids(cur.Items) {
			assert.Contains(t, ids(prev.Items), id)
		}
		prev = cur
	}
}

func TestActiveCountAndClear(t *testing.T) {
	assert.Zero(t, State{}.ActiveCount())
	assert.Zero(t, State{Campus: "todos", Category: "all", Type: "ALL"}.ActiveCount())

	st := State{Query: "mochila", Campus: "Gama", Category: "chaves", Type: "LOST", Sort: SortRelevant}
	assert.Equal(t, 4, st.ActiveCount())

	cleared := st.Clear()
	assert.Equal(t, State{Query: "mochila", Sort: SortRelevant}, cleared)
	assert.Equal(t, 1, cleared.ActiveCount())
	// The original value is untouched.
	assert.Equal(t, "Gama", st.Campus)
}

func TestParseSort(t *testing.T) {
	for in, want := range map[string]Sort{"": SortRecent, "recent": SortRecent, "RELEVANT": SortRelevant} {
		got, ok := ParseSort(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSort("oldest")
	assert.False(t, ok)
}
