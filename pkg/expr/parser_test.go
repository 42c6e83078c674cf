package expr

import "testing"

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2+3*4", "(2 + (3 * 4))"},
		{"(2+3)*4", "((2 + 3) * 4)"},
		{"-2*3", "((-2) * 3)"},
		{"-2**2", "(-(2 ** 2))"},
		{"2**3**2", "(2 ** (3 ** 2))"},
		{"a - b - c", "((a - b) - c)"},
		{"a // b % c", "((a // b) % c)"},
		{"a < b <= c", "(a < b <= c)"},
		{"x = 1", "(x == 1)"},
		{"x <> 1", "(x != 1)"},
		{"not a and b", "((not a) and b)"},
		{"a or b and c", "(a or (b and c))"},
		{"a || b && !c", "(a or (b and (not c)))"},
		{"a + 1 > b * 2", "((a + 1) > (b * 2))"},
		{"len(x$) + 1", "(LEN(x$) + 1)"},
		{"MAX(1, 2 + 3, -4)", "MAX(1, (2 + 3), (-4))"},
		{"RND()", "RND()"},
		{":SIZE / 2", "(SIZE / 2)"},
		{`"a" + 'b'`, `("a" + "b")`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got := node.String(); got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"2 +",
		"1 2",
		"(1",
		"foo(1",
		"(1)(2)",
		"x.y",
		"@",
		`"open`,
		"a < ",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", input)
			}
			if KindOf(err) != ErrSyntax {
				t.Errorf("kind = %q, want %q", KindOf(err), ErrSyntax)
			}
		})
	}
}

func TestParseSequence(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"10 -20", []string{"10", "(-20)"}},
		{"10 - 20", []string{"(10 - 20)"}},
		{"10-20", []string{"(10 - 20)"}},
		{":X+10 :Y", []string{"(X + 10)", "Y"}},
		{"1, 2, 3", []string{"1", "2", "3"}},
		{"(1+2) (3)", []string{"(1 + 2)", "3"}},
		{"MAX(1, -2) 5", []string{"MAX(1, (-2))", "5"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			nodes, err := ParseSequence(tt.input)
			if err != nil {
				t.Fatalf("ParseSequence(%q) error: %v", tt.input, err)
			}
			if len(nodes) != len(tt.expected) {
				t.Fatalf("got %d nodes, want %d", len(nodes), len(tt.expected))
			}
			for i, n := range nodes {
				if n.String() != tt.expected[i] {
					t.Errorf("node %d = %q, want %q", i, n.String(), tt.expected[i])
				}
			}
		})
	}
}
