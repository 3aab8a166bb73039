package tool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubProvider is a minimal in-package Provider for registry tests.
type stubProvider struct {
	name  string
	tools []Descriptor
}

func (p *stubProvider) Name() string        { return p.name }
func (p *stubProvider) Tools() []Descriptor { return p.tools }
func (p *stubProvider) CallTool(_ context.Context, name string, _ map[string]any) (string, error) {
	return "", fmt.Errorf("stub %s has no executable tool %s", p.name, name)
}

func desc(name string) Descriptor {
	return Descriptor{Name: name, Description: name + " description", InputSchema: map[string]any{"type": "object"}}
}

func TestBuildAndResolve(t *testing.T) {
	a := &stubProvider{name: "a", tools: []Descriptor{desc("get_os_name")}}
	b := &stubProvider{name: "b", tools: []Descriptor{desc("get_disk_usage"), desc("get_mounts")}}

	r := Build([]Provider{a, b})

	assert.Equal(t, 3, r.Len())

	owner, ok := r.Resolve("get_os_name")
	assert.True(t, ok)
	assert.Equal(t, "a", owner.Name())

	owner, ok = r.Resolve("get_mounts")
	assert.True(t, ok)
	assert.Equal(t, "b", owner.Name())

	_, ok = r.Resolve("unknown")
	assert.False(t, ok)
}

func TestBuildLastWriterWins(t *testing.T) {
	a := &stubProvider{name: "a", tools: []Descriptor{desc("get_os_name")}}
	b := &stubProvider{name: "b", tools: []Descriptor{desc("get_os_name")}}

	r := Build([]Provider{a, b})

	owner, ok := r.Resolve("get_os_name")
	assert.True(t, ok)
	assert.Equal(t, "b", owner.Name())
	assert.Equal(t, 1, r.Len())

	// Shadowed descriptor is dropped from the catalog as well.
	assert.Len(t, r.Descriptors(), 1)
}

func TestDescriptorsOrder(t *testing.T) {
	a := &stubProvider{name: "a", tools: []Descriptor{desc("t1"), desc("t2")}}
	b := &stubProvider{name: "b", tools: []Descriptor{desc("t3")}}

	r := Build([]Provider{a, b})

	var names []string
	for _, d := range r.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, names)
}

func TestDescriptorsReturnsCopy(t *testing.T) {
	a := &stubProvider{name: "a", tools: []Descriptor{desc("t1")}}
	r := Build([]Provider{a})

	ds := r.Descriptors()
	ds[0].Name = "mutated"

	assert.Equal(t, "t1", r.Descriptors()[0].Name)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Descriptors())
}
