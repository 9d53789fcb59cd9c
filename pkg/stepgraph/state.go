package stepgraph

import (
	"reflect"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
)

// State is the payload threaded through a run.
//
// Data holds the caller's working values. Metadata holds bookkeeping
// (for example the name of the last step) and is kept apart from Data so
// step authors can treat Data as their own domain payload.
//
// A run owns its State exclusively. Nodes may mutate it in place or return
// a replacement; either way exactly one State is current at any point.
type State struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// NewState creates a state around data. A nil map is replaced by an empty one.
func NewState(data map[string]any) *State {
	if data == nil {
		data = make(map[string]any)
	}
	return &State{
		Data:     data,
		Metadata: make(map[string]any),
	}
}

// normalize makes sure both maps are non-nil so steps can write without checks.
func (s *State) normalize() {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
}

// Get returns the Data value for key.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.Data[key]
	return v, ok
}

// Set stores a Data value.
func (s *State) Set(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
}

// Snapshot returns a deep copy of the state. Later mutation of s does not
// affect the copy, which makes it suitable for the step log.
func (s *State) Snapshot() State {
	if s == nil {
		return State{Data: map[string]any{}, Metadata: map[string]any{}}
	}
	snap := State{
		Data:     copyMap(s.Data),
		Metadata: copyMap(s.Metadata),
	}
	return snap
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue deep-copies v. Values implementing deepcopy.Interface copy
// themselves and maps and slices are copied element by element. Other
// values whose type holds unexported struct fields, interfaces, funcs or
// channels cannot be reproduced by reflection; they are shared with the
// live state instead of being zeroed.
func copyValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case deepcopy.Interface:
		return val.DeepCopy()
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return v
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(copyElem(iter.Key()), copyElem(iter.Value()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyElem(rv.Index(i)))
		}
		return out.Interface()
	}

	if !copyable(rv.Type()) {
		return v
	}
	return deepcopy.Copy(v)
}

// copyElem copies a map key, map value or slice element, keeping its type.
func copyElem(elem reflect.Value) reflect.Value {
	if elem.Kind() == reflect.Interface && elem.IsNil() {
		return reflect.Zero(elem.Type())
	}
	cp := copyValue(elem.Interface())
	if cp == nil {
		return reflect.Zero(elem.Type())
	}
	rv := reflect.ValueOf(cp)
	if !rv.Type().AssignableTo(elem.Type()) {
		return elem
	}
	return rv
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	copyableTypes sync.Map // reflect.Type -> bool, for finished walks only
)

// copyable reports whether deepcopy.Copy reproduces values of t faithfully.
func copyable(t reflect.Type) bool {
	if cached, ok := copyableTypes.Load(t); ok {
		return cached.(bool)
	}
	ok := checkCopyable(t, make(map[reflect.Type]bool))
	copyableTypes.Store(t, ok)
	return ok
}

// checkCopyable walks t. Types already on the walk are assumed copyable,
// which ends the recursion for self-referencing types.
func checkCopyable(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if cached, ok := copyableTypes.Load(t); ok {
		return cached.(bool)
	}
	if visiting[t] {
		return true
	}
	visiting[t] = true

	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Interface:
		return false
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkCopyable(t.Elem(), visiting)
	case reflect.Map:
		return checkCopyable(t.Key(), visiting) && checkCopyable(t.Elem(), visiting)
	case reflect.Struct:
		if t == timeType {
			return true
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || !checkCopyable(f.Type, visiting) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// StepRecord is one entry of a run's audit trail: the node that executed,
// its position in the run and the state it left behind.
type StepRecord struct {
	Step          int       `json:"step"`
	NodeName      string    `json:"node_name"`
	Timestamp     time.Time `json:"timestamp"`
	StateSnapshot State     `json:"state_snapshot"`
}

func newStepRecord(step int, nodeName string, s *State) StepRecord {
	return StepRecord{
		Step:          step,
		NodeName:      nodeName,
		Timestamp:     time.Now(),
		StateSnapshot: s.Snapshot(),
	}
}
