package fileutils

import "testing"

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: ` {"a":1} `, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "inline fence", in: "```json {\"a\":1}```", want: `{"a":1}`},
		{name: "prose", in: "Here you go:\n{\"a\":{\"b\":2}}\nThanks!", want: `{"a":{"b":2}}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractJSONObject(tc.in)
			if err != nil {
				t.Fatalf("ExtractJSONObject: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestExtractJSONObject_Errors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "no json here", "{not json}"} {
		if _, err := ExtractJSONObject(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
