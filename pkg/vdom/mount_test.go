package vdom

import (
	"context"
	"testing"

	"github.com/nexus-editor/agentcore/pkg/buffer"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
)

func TestMount_TextEqualsBufferContent(t *testing.T) {
	host := buffer.NewMemHost()
	bufID := ids.BufferId("b1")
	host.CreateBuffer(bufID)

	tree := Tmpl("status",
		Str("Status: "),
		One{Node: Text("processing")},
		Str("\nDetail: "),
		One{Node: Text("none")},
	)

	m, err := Mount(context.Background(), host, bufID, position.Pos0{}, tree)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	want := "Status: processing\nDetail: none"
	if got := host.Text(bufID); got != want {
		t.Fatalf("buffer text = %q, want %q", got, want)
	}
	if m.Start != (position.Pos0{}) {
		t.Fatalf("root start = %+v, want zero", m.Start)
	}
}

func TestMount_EmptyTextNodeOwnsNoExtmark(t *testing.T) {
	host := buffer.NewMemHost()
	bufID := ids.BufferId("b1")
	host.CreateBuffer(bufID)

	empty := Text("").WithExtmark(Extmark{})
	if _, err := Mount(context.Background(), host, bufID, position.Pos0{}, empty); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if n := host.ExtmarkCount(bufID); n != 0 {
		t.Fatalf("extmark count = %d, want 0 for empty node", n)
	}
}

func TestReconcile_IdempotentFullRender(t *testing.T) {
	host := buffer.NewMemHost()
	bufID := ids.BufferId("b1")
	host.CreateBuffer(bufID)

	v0 := Tmpl("msg", Str("hello"))
	v1 := Tmpl("msg", Str("hello world"))
	v2 := Tmpl("msg", Str("goodbye"))

	m0, err := Mount(context.Background(), host, bufID, position.Pos0{}, v0)
	if err != nil {
		t.Fatalf("mount v0: %v", err)
	}
	acc := AccumulatedEdit{}
	m1, acc, err := Reconcile(context.Background(), host, bufID, m0, v1, acc)
	if err != nil {
		t.Fatalf("reconcile v1: %v", err)
	}
	if _, _, err := Reconcile(context.Background(), host, bufID, m1, v2, acc); err != nil {
		t.Fatalf("reconcile v2: %v", err)
	}

	if got, want := host.Text(bufID), "goodbye"; got != want {
		t.Fatalf("final buffer text = %q, want %q (idempotence of full render via diff)", got, want)
	}
}

func TestReconcile_TextSameContentOnlyRemaps(t *testing.T) {
	host := buffer.NewMemHost()
	bufID := ids.BufferId("b1")
	host.CreateBuffer(bufID)

	v0 := Tmpl("row", Str("prefix"), One{Node: Text("same")})
	m0, err := Mount(context.Background(), host, bufID, position.Pos0{}, v0)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	before := host.ExtmarkCount(bufID)

	v1 := Tmpl("row", Str("prefix!"), One{Node: Text("same")})
	m1, _, err := Reconcile(context.Background(), host, bufID, m0, v1, AccumulatedEdit{})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	after := host.ExtmarkCount(bufID)
	if before != after {
		t.Fatalf("extmark count changed from %d to %d on a same-content Text child", before, after)
	}
	if got, want := host.Text(bufID), "prefix!same"; got != want {
		t.Fatalf("buffer text = %q, want %q", got, want)
	}
	for _, c := range m1.Children {
		if c.Start.Less(m1.Start) || m1.End.Less(c.End) {
			t.Fatalf("child range %v not within parent range %v", c.Range(), m1.Range())
		}
	}
}
