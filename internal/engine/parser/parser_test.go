package parser

import (
	"errors"
	"testing"

	"github.com/hejijunhao/authbayes/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want model.Event
	}{
		{"100,u1,proto,S", model.Event{Time: "100", Key: "u1,proto", Result: model.Success}},
		{"101,u1,proto,F", model.Event{Time: "101", Key: "u1,proto", Result: model.Fail}},
		{"1,U1@DOM1,U1@DOM1,C1,C1,Kerberos,Network,LogOn,Success\n",
			model.Event{Time: "1", Key: "U1@DOM1,U1@DOM1,C1,C1,Kerberos,Network,LogOn", Result: model.Success}},
		{"7,a,b,Fail\r\n", model.Event{Time: "7", Key: "a,b", Result: model.Fail}},
		{"5,Success", model.Event{Time: "5", Key: "", Result: model.Success}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.line)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.line, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseRejectsBadResult(t *testing.T) {
	for _, line := range []string{
		"100,u1,proto,s",
		"100,u1,proto,fail",
		"100,u1,proto,X",
		"100,u1,proto,",
		"100",
		"",
	} {
		_, err := Parse(line)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q) error = %v, want *ParseError", line, err)
		}
	}
}

func TestKeyFieldsRoundTrip(t *testing.T) {
	ev, err := Parse("100,u1,proto,host,logon,S")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	fields := ev.Key.Fields()
	want := []string{"u1", "proto", "host", "logon"}
	if len(fields) != len(want) {
		t.Fatalf("Fields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("Fields()[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
	if model.NewKey(fields) != ev.Key {
		t.Errorf("NewKey(Fields()) = %q, want %q", model.NewKey(fields), ev.Key)
	}
}

func mustNew(t *testing.T, opts ...Option) *Parser {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestWithFieldCount(t *testing.T) {
	p := mustNew(t, WithFieldCount(4))
	if _, err := p.Parse("100,u1,proto,S"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := p.Parse("100,u1,proto,extra,S")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestWithSeparator(t *testing.T) {
	tests := []struct {
		sep    string
		line   string
		fields []string
	}{
		{"\t", "100\tu1\tproto\tF", []string{"u1", "proto"}},
		{"|", "100|u1|proto|S", []string{"u1", "proto"}},
		{"::", "100::u1::proto::host::S", []string{"u1", "proto", "host"}},
	}

	for _, tt := range tests {
		ev, err := mustNew(t, WithSeparator(tt.sep)).Parse(tt.line)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.line, err)
		}
		if ev.Time != "100" {
			t.Errorf("Parse(%q).Time = %q, want 100", tt.line, ev.Time)
		}
		if want := model.NewKey(tt.fields); ev.Key != want {
			t.Errorf("Parse(%q).Key = %q, want %q", tt.line, ev.Key, want)
		}
		got := ev.Key.Fields()
		if len(got) != len(tt.fields) {
			t.Fatalf("Fields() = %v, want %v", got, tt.fields)
		}
		for i := range got {
			if got[i] != tt.fields[i] {
				t.Errorf("Fields()[%d] = %q, want %q", i, got[i], tt.fields[i])
			}
		}
	}
}

func TestSeparatorsShareKeys(t *testing.T) {
	comma, err := Parse("1,u1,proto,S")
	if err != nil {
		t.Fatal(err)
	}
	pipe, err := mustNew(t, WithSeparator("|")).Parse("1|u1|proto|S")
	if err != nil {
		t.Fatal(err)
	}
	if comma.Key != pipe.Key {
		t.Errorf("keys differ: %q vs %q", comma.Key, pipe.Key)
	}
}

func TestRejectsKeySeparatorInField(t *testing.T) {
	_, err := mustNew(t, WithSeparator("|")).Parse("1|a,b|c|S")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(WithSeparator("")); !errors.Is(err, ErrEmptySeparator) {
		t.Errorf("New(WithSeparator(\"\")) error = %v, want ErrEmptySeparator", err)
	}
	if _, err := New(WithFieldCount(1)); err == nil {
		t.Error("New(WithFieldCount(1)) succeeded, want error")
	}
}
