package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone_DeepCopies(t *testing.T) {
	original := Map{
		"name":   String("alpha"),
		"count":  Int(3),
		"nested": Map{"inner": List{Int(1), Int(2)}},
	}

	clone := original.Clone()
	require.True(t, Equal(original, clone))

	clone["count"] = Int(99)
	clone["nested"].(Map)["inner"] = String("mutated")

	assert.True(t, Equal(Int(3), original["count"]))
	assert.True(t, Equal(List{Int(1), Int(2)}, original["nested"].(Map)["inner"]))
}

func TestClone_NilMap(t *testing.T) {
	var m Map
	clone := m.Clone()
	assert.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null null", Null{}, Null{}, true},
		{"null string", Null{}, String(""), false},
		{"string equal", String("x"), String("x"), true},
		{"string differs", String("x"), String("y"), false},
		{"int equal", Int(5), Int(5), true},
		{"int float no coercion", Int(5), Float(5), false},
		{"float equal", Float(1.5), Float(1.5), true},
		{"bool equal", Bool(true), Bool(true), true},
		{"list equal", List{Int(1), String("a")}, List{Int(1), String("a")}, true},
		{"list length differs", List{Int(1)}, List{Int(1), Int(2)}, false},
		{"map equal", Map{"k": Int(1)}, Map{"k": Int(1)}, true},
		{"map extra key", Map{"k": Int(1)}, Map{"k": Int(1), "j": Int(2)}, false},
		{"map value differs", Map{"k": Int(1)}, Map{"k": Int(2)}, false},
		{"nested", Map{"a": List{Map{"b": Bool(false)}}}, Map{"a": List{Map{"b": Bool(false)}}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(tc.a, tc.b))
			assert.Equal(t, tc.want, Equal(tc.b, tc.a))
		})
	}
}

func TestNumber(t *testing.T) {
	n, ok := Number(Int(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, n)

	n, ok = Number(Float(2.5))
	assert.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = Number(String("7"))
	assert.False(t, ok)

	_, ok = Number(nil)
	assert.False(t, ok)
}

func TestFromGo_RoundTrip(t *testing.T) {
	in := map[string]any{
		"s":    "text",
		"i":    int64(4),
		"f":    1.25,
		"b":    true,
		"nul":  nil,
		"list": []any{"a", int64(1)},
		"map":  map[string]any{"inner": false},
	}

	m, err := MapFromGo(in)
	require.NoError(t, err)

	assert.True(t, Equal(String("text"), m["s"]))
	assert.True(t, Equal(Int(4), m["i"]))
	assert.True(t, Equal(Float(1.25), m["f"]))
	assert.True(t, Equal(Bool(true), m["b"]))
	assert.True(t, Equal(Null{}, m["nul"]))
	assert.True(t, Equal(List{String("a"), Int(1)}, m["list"]))

	back := Interface(m).(map[string]any)
	assert.Equal(t, "text", back["s"])
	assert.Equal(t, int64(4), back["i"])
	assert.Nil(t, back["nul"])
}

func TestFromGo_UnsupportedType(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)

	_, err = MapFromGo(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestSortedKeys(t *testing.T) {
	m := Map{"zeta": Int(1), "alpha": Int(2), "mid": Int(3)}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, m.SortedKeys())
}
