package ailink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name, input, want string
	}{
		{"plain", "  library ieee;  ", "library ieee;"},
		{"vhdl fence", "```vhdl\nlibrary ieee;\nuse ieee.std_logic_1164.all;\n```", "library ieee;\nuse ieee.std_logic_1164.all;"},
		{"bare fence", "```\nentity tb is end;\n```", "entity tb is end;"},
		{"tilde fence", "~~~vhdl\nentity tb is end;\n~~~", "entity tb is end;"},
		{"prose around", "Here is the testbench:\n```vhdl\nentity tb is end;\n```\nGood luck.", "entity tb is end;"},
		{"unterminated", "```vhdl\nentity tb is end;", "entity tb is end;"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, StripCodeFences(tc.input))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name, input, want string
	}{
		{"bare", `{"issuesFound":[]}`, `{"issuesFound":[]}`},
		{"json fence", "```json\n{\"issuesFound\":[]}\n```", `{"issuesFound":[]}`},
		{"prose", "Sure! {\"issuesFound\":[]} Hope that helps.", `{"issuesFound":[]}`},
		{"none", "no json here", "no json here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractJSON(tc.input))
		})
	}
}

func FuzzStripCodeFences(f *testing.F) {
	f.Add("```vhdl\nentity e is end;\n```")
	f.Add("~~~\n{}\n~~~")
	f.Add("text ```x``` more")
	f.Fuzz(func(t *testing.T, input string) {
		StripCodeFences(input)
		ExtractJSON(input)
	})
}
