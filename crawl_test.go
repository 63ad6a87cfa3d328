package boschhttp

import (
	"context"
	"testing"
)

func TestCrawlDepthZeroStops(t *testing.T) {
	mem := newMemRequester()
	mem.set("/root", map[string]any{"id": "", "references": refs("/root/a")})
	mem.set("/root/a", map[string]any{"references": refs("/root/a/leaf")})
	mem.set("/root/a/leaf", map[string]any{"value": 1})

	nodes, err := Crawl(context.Background(), &Env{Conn: mem}, "/root", 0)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("Crawl() = %+v, want no nodes", nodes)
	}
	if n := mem.getCount("/root/a"); n != 0 {
		t.Errorf("/root/a read %d times below depth zero", n)
	}
}

func TestCrawlDepth(t *testing.T) {
	mem := newMemRequester()
	mem.set("/root", map[string]any{"references": refs("/root/a", "/root/b")})
	mem.set("/root/a", map[string]any{"references": refs("/root/a/leaf")})
	mem.set("/root/a/leaf", map[string]any{"value": 1})
	mem.set("/root/b", map[string]any{"value": 2})
	env := &Env{Conn: mem}

	nodes, err := Crawl(context.Background(), env, "/root", 1)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(nodes) != 2 || nodes[0].ID != "/root/a" || nodes[1].ID != "/root/b" {
		t.Errorf("Crawl(depth 1) = %+v", nodes)
	}

	nodes, err = Crawl(context.Background(), env, "/root", -1)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(nodes) != 2 || nodes[0].ID != "/root/a/leaf" || nodes[1].ID != "/root/b" {
		t.Errorf("Crawl(unlimited) = %+v", nodes)
	}
}
