package yamltree

import "testing"

func TestParseMapOrder(t *testing.T) {
	src := []byte("zebra: 1\napple: 2\nmango: 3\n")
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	m, ok := AsMap(n)
	if !ok {
		t.Fatalf("Parse() root is not a map")
	}
	want := []string{"zebra", "apple", "mango"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseScalarKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind Kind
	}{
		{"string", "value: hello\n", KindString},
		{"int", "value: 42\n", KindInt},
		{"float", "value: 4.2\n", KindFloat},
		{"bool", "value: true\n", KindBool},
		{"null", "value: ~\n", KindNull},
		{"quoted string number", "value: \"42\"\n", KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse([]byte(tt.src))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			m, _ := AsMap(n)
			v, _ := m.Get("value")
			if got := KindOf(v); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestParseSequence(t *testing.T) {
	n, err := Parse([]byte("- a\n- b\n- c\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	seq, ok := AsSequence(n)
	if !ok {
		t.Fatalf("Parse() root is not a sequence")
	}
	if len(seq) != 3 {
		t.Fatalf("len(seq) = %d, want 3", len(seq))
	}
}

func TestParseAlias(t *testing.T) {
	src := []byte("base: &b\n  x: 1\nderived:\n  <<: *b\n")
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	m, _ := AsMap(n)
	base, _ := m.Get("base")
	baseMap, ok := AsMap(base)
	if !ok || baseMap.Len() != 1 {
		t.Fatalf("base did not decode to a one-entry map: %#v", base)
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("key: [unterminated\n"))
	if err == nil {
		t.Fatalf("Parse() error = nil, want non-nil for malformed YAML")
	}
}

func TestConvertStringLikeIdempotent(t *testing.T) {
	tests := []*Node{
		{Value: "hello"},
		{Value: true},
		{Value: false},
		{Value: int64(42)},
		{Value: float64(4.5)},
		{Value: float64(4.0)},
	}
	for _, n := range tests {
		first, ok := ConvertStringLike(n)
		if !ok {
			t.Fatalf("ConvertStringLike(%#v) ok = false", n.Value)
		}
		second, ok := ConvertStringLike(&Node{Value: first})
		if !ok {
			t.Fatalf("ConvertStringLike(%q) ok = false on reapplication", first)
		}
		if first != second {
			t.Errorf("ConvertStringLike not idempotent: %q != %q", first, second)
		}
	}
}

func TestConvertStringLikeRejectsComposite(t *testing.T) {
	if _, ok := ConvertStringLike(&Node{Value: []*Node{}}); ok {
		t.Errorf("ConvertStringLike(sequence) ok = true, want false")
	}
	if _, ok := ConvertStringLike(&Node{Value: newOrderedMap(0)}); ok {
		t.Errorf("ConvertStringLike(map) ok = true, want false")
	}
}

func TestIsStringLike(t *testing.T) {
	tests := []struct {
		val  interface{}
		want bool
	}{
		{"s", true},
		{int64(1), true},
		{float64(1), true},
		{true, true},
		{nil, false},
		{[]*Node{}, false},
	}
	for _, tt := range tests {
		if got := IsStringLike(&Node{Value: tt.val}); got != tt.want {
			t.Errorf("IsStringLike(%#v) = %v, want %v", tt.val, got, tt.want)
		}
	}
}
