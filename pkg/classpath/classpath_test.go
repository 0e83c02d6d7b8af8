package classpath

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string
}

type gadget struct {
	Size int
}

func TestRegisterAndResolve(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("ui:Widget", widget{}))
	r := b.Build()

	t.Run("resolve class by path", func(t *testing.T) {
		obj, err := r.ResolveClass("ui:Widget")
		require.NoError(t, err)
		assert.Equal(t, reflect.TypeOf(widget{}), obj)
	})

	t.Run("resolve path by type", func(t *testing.T) {
		path, err := r.ResolvePath(reflect.TypeOf(widget{}))
		require.NoError(t, err)
		assert.Equal(t, "ui:Widget", path)
	})

	t.Run("pointer type resolves through element", func(t *testing.T) {
		path, err := r.ResolvePath(reflect.TypeOf(&widget{}))
		require.NoError(t, err)
		assert.Equal(t, "ui:Widget", path)
	})

	t.Run("unknown path", func(t *testing.T) {
		_, err := r.ResolveClass("no/such:Path")
		assert.ErrorIs(t, err, ErrUnknownPath)
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := r.ResolvePath(reflect.TypeOf(gadget{}))
		assert.ErrorIs(t, err, ErrUnknownClass)
	})
}

func TestRegisterValidation(t *testing.T) {
	t.Run("path without colon", func(t *testing.T) {
		b := NewBuilder()
		assert.ErrorIs(t, b.Register("Widget", widget{}), ErrInvalidPath)
	})

	t.Run("path with empty symbol", func(t *testing.T) {
		b := NewBuilder()
		assert.ErrorIs(t, b.Register("ui:", widget{}), ErrInvalidPath)
	})

	t.Run("bare builtin path is valid", func(t *testing.T) {
		b := NewBuilder()
		assert.NoError(t, b.Register(":Widget", widget{}))
	})

	t.Run("nil object", func(t *testing.T) {
		b := NewBuilder()
		assert.ErrorIs(t, b.Register("ui:Widget", nil), ErrInvalidPath)
	})
}

func TestDuplicatePolicy(t *testing.T) {
	t.Run("duplicate path rejected", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Register("ui:Widget", widget{}))
		assert.ErrorIs(t, b.Register("ui:Widget", gadget{}), ErrDuplicatePath)
	})

	t.Run("second path for same class rejected", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Register("ui:Widget", widget{}))
		assert.ErrorIs(t, b.Register("ui:Widget2", widget{}), ErrDuplicateClass)
	})

	t.Run("exact re-registration is a no-op", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Register("ui:Widget", widget{}))
		assert.NoError(t, b.Register("ui:Widget", widget{}))
		assert.Equal(t, 1, b.Build().Len())
	})

	t.Run("reflect.Type and sample value are the same class", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Register("ui:Widget", reflect.TypeOf(widget{})))
		assert.NoError(t, b.Register("ui:Widget", widget{}))
		assert.ErrorIs(t, b.Register("ui:Other", &widget{}), ErrDuplicateClass)
	})
}

func TestRegisterModule(t *testing.T) {
	b := NewBuilder()
	err := b.RegisterModule("ui", map[string]any{
		"Widget":  widget{},
		"Gadget":  reflect.TypeOf(gadget{}),
		"version": "1.2.3", // non-class export, skipped
		"helper":  func() {},
		"missing": nil,
	})
	require.NoError(t, err)

	r := b.Build()
	assert.Equal(t, []string{"ui:Gadget", "ui:Widget"}, r.Paths())

	path, err := r.ResolvePath(reflect.TypeOf(gadget{}))
	require.NoError(t, err)
	assert.Equal(t, "ui:Gadget", path)
}

func TestBuildFreezes(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("ui:Widget", widget{}))
	r := b.Build()

	// Later registrations must not leak into the frozen registry.
	require.NoError(t, b.Register("ui:Gadget", gadget{}))
	_, err := r.ResolveClass("ui:Gadget")
	assert.ErrorIs(t, err, ErrUnknownPath)
	assert.Equal(t, 1, r.Len())
}
