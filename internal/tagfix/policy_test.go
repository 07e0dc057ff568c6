package tagfix

import (
	"reflect"
	"testing"
)

func TestPolicy(t *testing.T) {
	p := ParsePolicy("br, IMG  <em>\n\t, ")
	for _, name := range []string{"br", "BR", "img", "em", "<em>"} {
		if !p.IsOptional(name) {
			t.Errorf("expected %q to be optional", name)
		}
	}
	if p.IsOptional("div") {
		t.Error("div should not be optional")
	}
	if got := p.Names(); !reflect.DeepEqual(got, []string{"br", "em", "img"}) {
		t.Errorf("unexpected names %v", got)
	}
}

func TestPolicy_Zero(t *testing.T) {
	var p Policy
	if p.IsOptional("br") {
		t.Error("zero policy should have no optional tags")
	}
	if len(p.Names()) != 0 {
		t.Error("zero policy should list no names")
	}
}
