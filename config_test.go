package layerfs

import (
	"os"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig(strings.NewReader(`
mounts:
  - point: /data
    type: zip
    source: content.zip
  - point: /scratch
    type: memory
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Mounts) != 2 {
		t.Fatalf("mounts = %d, want 2", len(c.Mounts))
	}
	// File order is mount-table order.
	if c.Mounts[0].Point != "/data" || c.Mounts[0].Type != "zip" || c.Mounts[0].Source != "content.zip" {
		t.Errorf("mount 0 = %+v", c.Mounts[0])
	}
	if c.Mounts[1].Point != "/scratch" || c.Mounts[1].Type != "memory" {
		t.Errorf("mount 1 = %+v", c.Mounts[1])
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	_, err := LoadConfig(strings.NewReader(`
mounts:
  - point: /data
    type: memory
    flavor: strawberry
`))
	if err == nil {
		t.Error("unknown field should fail to decode")
	}
}

func TestConfigBuild(t *testing.T) {
	base, baseFs := newMemBackend()
	mustMkdirAll(t, baseFs, "/scratch")

	c := &Config{Mounts: []MountConfig{
		{Point: "/scratch", Type: "memory"},
	}}
	l, err := c.Build(base)
	if err != nil {
		t.Fatal(err)
	}

	p := mustParse(t, l, "/scratch/f.txt")
	if !p.InOverlay() {
		t.Fatalf("%q should classify into the memory mount", p.String())
	}
	ch, err := l.NewByteChannel(p, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ch.Write([]byte("scratch data")); err != nil {
		t.Fatal(err)
	}
	if err := ch.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readChannel(t, l, p); got != "scratch data" {
		t.Errorf("read back = %q", got)
	}
	// The memory mount leaves the base filesystem untouched.
	if _, err := baseFs.Stat("/scratch/f.txt"); err == nil {
		t.Error("base filesystem must not see the memory mount's contents")
	}
}

func TestConfigBuildValidation(t *testing.T) {
	base, _ := newMemBackend()

	tests := []struct {
		name   string
		mounts []MountConfig
	}{
		{"missing point", []MountConfig{{Type: "memory"}}},
		{"relative point", []MountConfig{{Point: "data", Type: "memory"}}},
		{"unknown type", []MountConfig{{Point: "/data", Type: "tar"}}},
		{"zip without source", []MountConfig{{Point: "/data", Type: "zip"}}},
		{"dir without source", []MountConfig{{Point: "/data", Type: "dir"}}},
	}
	for _, tt := range tests {
		c := &Config{Mounts: tt.mounts}
		if _, err := c.Build(base); err == nil {
			t.Errorf("%s: Build should fail", tt.name)
		}
	}
}

func TestConfigBuildPreservesOrder(t *testing.T) {
	base, baseFs := newMemBackend()
	mustMkdirAll(t, baseFs, "/a/b")

	// Nested mounts: the file's first entry wins classification.
	c := &Config{Mounts: []MountConfig{
		{Point: "/a/b", Type: "memory"},
		{Point: "/a", Type: "memory"},
	}}
	l, err := c.Build(base)
	if err != nil {
		t.Fatal(err)
	}
	p := mustParse(t, l, "/a/b/x.txt")
	if got := p.Base().String(); got != "/a/b" {
		t.Errorf("base = %q, want /a/b", got)
	}
}
