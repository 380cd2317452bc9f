package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplodeTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Springfield (1)", []string{"Springfield (1)"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{`"Foo, Bar", Baz`, []string{"Foo, Bar", "Baz"}},
		{`"Say ""hi""", x`, []string{`Say "hi"`, "x"}},
		{`a"b, c`, []string{`a"b`, "c"}},
		{" , ,", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExplodeTags(tc.in), "input %q", tc.in)
	}
}

func TestEncodeTagRoundTrip(t *testing.T) {
	tags := []string{"plain", "with, comma", `with "quote"`, "Springfield (1)"}
	assert.Equal(t, tags, ExplodeTags(ImplodeTags(tags)))
}

func TestExtractID(t *testing.T) {
	cases := []struct {
		in     string
		id     string
		parsed bool
	}{
		{"Springfield (1)", "1", true},
		{"Foo (bar) (42)", "42", true},
		{"  Spaced (abc-1)  ", "abc-1", true},
		{"Newtown", "", false},
		{"(1)", "", false},
		{"Label ()", "", false},
		{"NoSpace(1)", "", false},
		{"Foo (1) bar", "1", true},
		{"Foo (1) bar (2) baz", "2", true},
	}
	for _, tc := range cases {
		id, ok := ExtractID(tc.in)
		assert.Equal(t, tc.parsed, ok, "input %q", tc.in)
		assert.Equal(t, tc.id, id, "input %q", tc.in)
	}
}

func TestRenderExtractRoundTrip(t *testing.T) {
	labels := []string{"Springfield", "São Paulo", "Multi word label", "x", "Foo (bar)"}
	for i, label := range labels {
		id := fmt.Sprintf("%d", i+1)
		got, ok := ExtractID(Render(label, id))
		assert.True(t, ok, label)
		assert.Equal(t, id, got, label)
	}
}
