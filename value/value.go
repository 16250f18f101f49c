package value

// Kind discriminates the variants a Value can hold.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindFunc:
		return "func"
	}
	return "invalid"
}

// Func is an invocable leaf. It receives the structured argument carried by
// the invocation that reaches it; it has no return path.
type Func func(Value)

// Value is one structured value: null, bool, number, string, list, map, or
// an invocable leaf. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	list []Value
	m    *Map
	fn   Func
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

func Int(n int64) Value { return Value{kind: KindNumber, num: float64(n)} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func ListOf(items ...Value) Value { return Value{kind: KindList, list: items} }

func FuncOf(fn Func) Value { return Value{kind: KindFunc, fn: fn} }

// OfMap wraps an ordered map. A nil map is the null value.
func OfMap(m *Map) Value {
	if m == nil {
		return Value{}
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool { return v.b }

func (v Value) Num() float64 { return v.num }

func (v Value) Str() string { return v.str }

func (v Value) List() []Value { return v.list }

func (v Value) Func() Func { return v.fn }

// Map returns the underlying ordered map, or nil for non-map values.
func (v Value) Map() *Map { return v.m }

// Equal reports deep equality. Func leaves are never equal, not even to
// themselves: invocables have identity, not value.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false
		}
		for _, k := range a.m.Keys() {
			av, _ := a.m.Get(k)
			bv, ok := b.m.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Map is a key-value container that preserves insertion order of keys.
// Setting an existing key keeps its original position.
type Map struct {
	keys []string
	vals map[string]Value
}

func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

func (m *Map) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.vals[key]
	return ok
}

// Delete removes a key, preserving the relative order of remaining keys.
// Absent keys are a no-op.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (m *Map) Keys() []string { return m.keys }

func (m *Map) Len() int { return len(m.keys) }
