package usb_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/usb"
)

func TestParsePortPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    usb.PortPath
		wantErr bool
	}{
		{
			name:  "nested device",
			input: "2-1.4",
			want:  usb.PortPath{Bus: 2, Ports: []int{1, 4}},
		},
		{
			name:  "direct device",
			input: "3-2",
			want:  usb.PortPath{Bus: 3, Ports: []int{2}},
		},
		{
			name:  "root hub sysfs form",
			input: "usb2",
			want:  usb.PortPath{Bus: 2},
		},
		{
			name:  "root hub dash form",
			input: "2-0",
			want:  usb.PortPath{Bus: 2},
		},
		{
			name:  "deep chain",
			input: "1-1.2.3.4",
			want:  usb.PortPath{Bus: 1, Ports: []int{1, 2, 3, 4}},
		},
		{
			name:    "missing separator",
			input:   "2",
			wantErr: true,
		},
		{
			name:    "empty ports",
			input:   "2-",
			wantErr: true,
		},
		{
			name:    "zero port",
			input:   "2-1.0",
			wantErr: true,
		},
		{
			name:    "negative port",
			input:   "2--1",
			wantErr: true,
		},
		{
			name:    "junk",
			input:   "2-1.a",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usb.ParsePortPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, tt.want, got)
			// parsing the rendered form round-trips
			back, err := usb.ParsePortPath(got.String())
			assert.NoError(t, err)
			assert.True(t, got.Equal(back))
		})
	}
}

func TestPortPathString(t *testing.T) {
	assert.Equal(t, "2-0", usb.RootPath(2).String())
	assert.Equal(t, "2-1.4", usb.PortPath{Bus: 2, Ports: []int{1, 4}}.String())
}

func TestPortPathCompare(t *testing.T) {
	// shallower paths order before deeper ones, so sorting guarantees every
	// hub comes before the devices behind it
	paths := []usb.PortPath{
		{Bus: 2, Ports: []int{1}},
		{Bus: 1, Ports: []int{2, 1}},
		{Bus: 1, Ports: []int{3}},
		{Bus: 1},
		{Bus: 1, Ports: []int{2}},
		{Bus: 1, Ports: []int{2, 1, 4}},
		{Bus: 1, Ports: []int{3, 1}},
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Compare(paths[j]) < 0 })

	want := []string{"1-0", "1-2", "1-3", "1-2.1", "1-3.1", "1-2.1.4", "2-1"}
	got := make([]string, len(paths))
	for i, p := range paths {
		got[i] = p.String()
	}
	assert.Equal(t, want, got)
}

func TestPortPathRelations(t *testing.T) {
	root := usb.RootPath(1)
	hub := usb.PortPath{Bus: 1, Ports: []int{2}}
	leaf := usb.PortPath{Bus: 1, Ports: []int{2, 1}}
	otherBus := usb.PortPath{Bus: 2, Ports: []int{2, 1}}

	assert.True(t, root.IsRoot())
	assert.False(t, hub.IsRoot())
	assert.Equal(t, 0, root.Depth())
	assert.Equal(t, 2, leaf.Depth())

	assert.True(t, root.IsAncestorOf(hub))
	assert.True(t, root.IsAncestorOf(leaf))
	assert.True(t, hub.IsAncestorOf(leaf))
	assert.False(t, hub.IsAncestorOf(hub), "a path is not its own ancestor")
	assert.False(t, leaf.IsAncestorOf(hub))
	assert.False(t, hub.IsAncestorOf(otherBus))

	assert.True(t, hub.IsParentOf(leaf))
	assert.False(t, root.IsParentOf(leaf))

	parent, ok := leaf.Parent()
	assert.True(t, ok)
	assert.True(t, parent.Equal(hub))
	parent, ok = hub.Parent()
	assert.True(t, ok)
	assert.True(t, parent.IsRoot())
	_, ok = root.Parent()
	assert.False(t, ok)

	assert.True(t, hub.Child(1).Equal(leaf))
	assert.True(t, leaf.Trunk().Equal(hub))
	assert.True(t, root.Trunk().IsRoot())
}

func TestPortPathChildDoesNotAlias(t *testing.T) {
	base := usb.PortPath{Bus: 1, Ports: []int{2, 1}}
	a := base.Child(3)
	b := base.Child(4)
	assert.Equal(t, []int{2, 1, 3}, a.Ports)
	assert.Equal(t, []int{2, 1, 4}, b.Ports)
	assert.Equal(t, []int{2, 1}, base.Ports)
}
