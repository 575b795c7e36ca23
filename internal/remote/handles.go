package remote

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Handles maps host objects to opaque tokens of the form "<Kind>@<n>".
// Tokens are stable for the lifetime of the table.
type Handles struct {
	mu      sync.Mutex
	kinds   map[reflect.Type]string
	byToken map[string]any
	byObj   map[any]string
	next    map[string]int
}

// NewHandles creates an empty handle table.
func NewHandles() *Handles {
	return &Handles{
		kinds:   make(map[reflect.Type]string),
		byToken: make(map[string]any),
		byObj:   make(map[any]string),
		next:    make(map[string]int),
	}
}

// RegisterKind declares that values with the dynamic type of sample are
// host objects of the given kind. sample is typically a nil pointer, e.g.
// (*project.Track)(nil).
func (h *Handles) RegisterKind(kind string, sample any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.kinds[reflect.TypeOf(sample)] = kind
}

// KindOf returns the registered kind for t.
func (h *Handles) KindOf(t reflect.Type) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kind, ok := h.kinds[t]

	return kind, ok
}

// Token returns the token for obj, allocating one on first sight.
// A nil object has no token.
func (h *Handles) Token(obj any) (string, error) {
	if obj == nil {
		return "", nil
	}

	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return "", nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if tok, ok := h.byObj[obj]; ok {
		return tok, nil
	}

	kind, ok := h.kinds[v.Type()]
	if !ok {
		return "", fmt.Errorf("type %s is not a registered handle kind", v.Type())
	}

	h.next[kind]++
	tok := kind + "@" + strconv.Itoa(h.next[kind])

	h.byObj[obj] = tok
	h.byToken[tok] = obj

	return tok, nil
}

// Resolve returns the object behind tok.
func (h *Handles) Resolve(tok string) (any, error) {
	if !IsToken(tok) {
		return nil, fmt.Errorf("malformed handle %q", tok)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	obj, ok := h.byToken[tok]
	if !ok {
		return nil, fmt.Errorf("unknown handle %q", tok)
	}

	return obj, nil
}

// Forget drops obj from the table, e.g. after the host deleted it.
// Its token is never reissued.
func (h *Handles) Forget(obj any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tok, ok := h.byObj[obj]; ok {
		delete(h.byObj, obj)
		delete(h.byToken, tok)
	}
}

// IsToken reports whether s has the shape of a handle token.
func IsToken(s string) bool {
	kind, n, ok := strings.Cut(s, "@")
	if !ok || kind == "" || n == "" {
		return false
	}

	_, err := strconv.Atoi(n)

	return err == nil
}
