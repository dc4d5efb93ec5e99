package scope

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// frame is what one goroutine has pushed: the Owner lookups start from and
// the component a host is rendering.
type frame struct {
	owner     *Owner
	rendering any
}

// frames maps goroutine IDs to *frame. Entries are removed once a
// goroutine pops everything it pushed.
var frames sync.Map

var goroutinePrefix = []byte("goroutine ")

// goid parses the goroutine ID from the "goroutine N [running]:" header
// of runtime.Stack.
func goid() uint64 {
	var buf [64]byte
	b := bytes.TrimPrefix(buf[:runtime.Stack(buf[:], false)], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

func lookupFrame() *frame {
	if f, ok := frames.Load(goid()); ok {
		return f.(*frame)
	}
	return nil
}

// push applies set to this goroutine's frame for the duration of fn.
// restore runs even if fn panics.
func push(set func(*frame) (restore func()), fn func()) {
	id := goid()
	v, _ := frames.LoadOrStore(id, &frame{})
	f := v.(*frame)
	restore := set(f)
	defer func() {
		restore()
		if f.owner == nil && f.rendering == nil {
			frames.Delete(id)
		}
	}()
	fn()
}

// Current returns the Owner active on this goroutine, or nil.
func Current() *Owner {
	if f := lookupFrame(); f != nil {
		return f.owner
	}
	return nil
}

// WithOwner runs fn with owner current on this goroutine.
//
// Goroutines start with no Owner. Work spawned from a component has to
// carry it over explicitly:
//
//	go func() {
//	    scope.WithOwner(parent, func() { ... })
//	}()
func WithOwner(owner *Owner, fn func()) {
	push(func(f *frame) func() {
		prev := f.owner
		f.owner = owner
		return func() { f.owner = prev }
	}, fn)
}

// Rendering returns the value installed by WithRendering, or nil outside
// a render.
func Rendering() any {
	if f := lookupFrame(); f != nil {
		return f.rendering
	}
	return nil
}

// WithRendering runs fn with r as the component being rendered, so hooks
// called from fn can find it.
func WithRendering(r any, fn func()) {
	push(func(f *frame) func() {
		prev := f.rendering
		f.rendering = r
		return func() { f.rendering = prev }
	}, fn)
}
