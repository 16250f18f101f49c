package value

import "strings"

// PathSep joins the key sequence leading to an extracted invocable.
const PathSep = "/"

// ExtractFuncs walks params depth-first, keys in stored order, and pulls out
// every invocable leaf reachable through nested maps. It returns a rebuilt
// copy with those leaves removed, the extracted paths in traversal order, and
// the path-to-invocable mapping. Lists are not descended into; an invocable
// root, or one buried inside a list, stays put and serializes as null.
func ExtractFuncs(params Value) (Value, []string, map[string]Func) {
	if params.Kind() != KindMap {
		return params, nil, nil
	}
	var paths []string
	funcs := make(map[string]Func)
	stripped := extractInto(params.Map(), "", &paths, funcs)
	if len(paths) == 0 {
		return params, nil, nil
	}
	return OfMap(stripped), paths, funcs
}

func extractInto(m *Map, prefix string, paths *[]string, funcs map[string]Func) *Map {
	out := NewMap()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		p := k
		if prefix != "" {
			p = prefix + PathSep + k
		}
		switch v.Kind() {
		case KindFunc:
			*paths = append(*paths, p)
			funcs[p] = v.Func()
		case KindMap:
			out.Set(k, OfMap(extractInto(v.Map(), p, paths, funcs)))
		default:
			out.Set(k, v)
		}
	}
	return out
}

// SpliceFuncs installs an invocable built by mk at every path, splitting on
// PathSep and creating intermediate maps as it goes. Non-map intermediates
// are overwritten. A non-map params is replaced by a fresh map when there is
// anything to splice; the resulting params value is returned. Maps already
// present are mutated in place.
func SpliceFuncs(params Value, paths []string, mk func(path string) Func) Value {
	if len(paths) == 0 {
		return params
	}
	if params.Kind() != KindMap {
		params = OfMap(NewMap())
	}
	for _, p := range paths {
		keys := strings.Split(p, PathSep)
		m := params.Map()
		for _, k := range keys[:len(keys)-1] {
			next, ok := m.Get(k)
			if !ok || next.Kind() != KindMap {
				nm := NewMap()
				m.Set(k, OfMap(nm))
				m = nm
				continue
			}
			m = next.Map()
		}
		m.Set(keys[len(keys)-1], FuncOf(mk(p)))
	}
	return params
}
