package di

import "testing"

type counter struct{ n int }

func TestContainer_FactoryIsSingleton(t *testing.T) {
	c := NewContainer()
	builds := 0
	tok := NewToken[*counter]("test:counter")

	RegisterToken(c, tok, func(ServiceRegistry) *counter {
		builds++
		return &counter{}
	})

	a := GetToken(c, tok)
	b := GetToken(c, tok)
	if a != b {
		t.Fatal("expected same instance")
	}
	if builds != 1 {
		t.Fatalf("factory ran %d times", builds)
	}
}

func TestContainer_FactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("config", 42)
	tok := NewToken[int]("test:derived")
	RegisterToken(c, tok, func(sr ServiceRegistry) int {
		return sr.Get("config").(int) * 2
	})

	if got := GetToken(c, tok); got != 84 {
		t.Fatalf("got %d", got)
	}
	if !c.Has("config") || c.Has("missing") {
		t.Fatal("Has mismatch")
	}
}

func TestContainer_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewContainer().Get("nope")
}
