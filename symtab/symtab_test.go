package symtab

import (
	"testing"

	glog "github.com/phoenixrt/phostdio/internal/log"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("stdio", "fseek", func() {}, "fseeko", "fseeko64")

	d, ok := r.Lookup("fseek")
	if !ok {
		t.Fatal("canonical name not found")
	}
	if d.Category != "stdio" {
		t.Fatalf("category = %q", d.Category)
	}
	alias, ok := r.Lookup("fseeko64")
	if !ok {
		t.Fatal("alias not found")
	}
	if alias != d {
		t.Fatal("alias resolved to a different definition")
	}
	if _, ok := r.Lookup("ftell"); ok {
		t.Fatal("unregistered name resolved")
	}
}

func TestCountCollapsesAliases(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("stdio", "getc", func() {}, "fgetc")
	r.RegisterFunc("stdio", "putc", func() {}, "fputc")
	if got := r.Count(); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	if got := len(r.Names()); got != 4 {
		t.Fatalf("names = %d, want 4", got)
	}
}

func TestMatchPatterns(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"fopen", "fclose", "freopen", "printf", "sprintf"} {
		r.RegisterFunc("stdio", name, func() {})
	}
	if got := r.Match("f*"); len(got) != 3 {
		t.Fatalf("prefix match = %v", got)
	}
	if got := r.Match("*printf"); len(got) != 2 {
		t.Fatalf("suffix match = %v", got)
	}
	if got := r.Match("*open*"); len(got) != 2 {
		t.Fatalf("contains match = %v", got)
	}
	if got := r.Match("fclose"); len(got) != 1 {
		t.Fatalf("exact match = %v", got)
	}
}

func TestOnCall(t *testing.T) {
	r := NewRegistry()
	var gotCat, gotName string
	r.OnCall = func(category, name, detail string) {
		gotCat, gotName = category, name
	}
	r.Call("stdio", "fflush", "slot=4")
	if gotCat != "stdio" || gotName != "fflush" {
		t.Fatalf("callback got %q %q", gotCat, gotName)
	}
}

func TestTraceFlowsThroughRegistry(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.OnCall = func(category, name, detail string) {
		got = append(got, category+"/"+name+"/"+detail)
	}

	l := glog.NewNop()
	l.SetOnTrace(r.Call)
	l.Trace("stdio", "fopen", "mode=r", glog.Slot(3))

	if len(got) != 1 || got[0] != "stdio/fopen/mode=r" {
		t.Fatalf("trace through registry = %v", got)
	}
}
