package cluster

import (
	"testing"

	"github.com/baymaxhuang/atomix/internal/config"
)

func threeMembers() Config {
	return Config{
		LocalID: 1,
		Members: []Member{{ID: 1, Address: "a:1"}, {ID: 2, Address: "b:1"}, {ID: 3, Address: "c:1"}},
	}
}

func TestHasMember(t *testing.T) {
	c := threeMembers()
	if !c.HasMember(2) {
		t.Fatalf("member 2 should exist")
	}
	if c.HasMember(9) {
		t.Fatalf("member 9 should not exist")
	}
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.Cluster{LocalID: 2, Members: []config.Member{{ID: 2, Address: "x:1"}}})
	if c.LocalID != 2 || len(c.Members) != 1 || c.Members[0].Address != "x:1" {
		t.Fatalf("conversion: %+v", c)
	}
	m, ok := c.LocalMember()
	if !ok || m.ID != 2 {
		t.Fatalf("local member: %+v %v", m, ok)
	}
}

func TestViewLifecycle(t *testing.T) {
	v := NewView(threeMembers())
	if v.IsOpen() {
		t.Fatalf("new view should be closed")
	}
	if _, err := v.Open().Get(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !v.IsOpen() {
		t.Fatalf("view should be open")
	}
	if _, err := v.Close().Get(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if v.IsOpen() {
		t.Fatalf("view should be closed")
	}
}
