package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTestbench(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adds directive",
			in:   "module tb; endmodule",
			want: "`timescale 1ns/1ps\nmodule tb; endmodule",
		},
		{
			name: "restores stripped marker",
			in:   "timescale 1ns/1ps\nmodule tb; endmodule",
			want: "`timescale 1ns/1ps\nmodule tb; endmodule",
		},
		{
			name: "keeps existing directive",
			in:   "`timescale 10ns/1ns\nmodule tb; endmodule",
			want: "`timescale 10ns/1ns\nmodule tb; endmodule",
		},
		{
			name: "removes leaked fences",
			in:   "```\nmodule tb; endmodule\n```",
			want: "`timescale 1ns/1ps\n\nmodule tb; endmodule\n",
		},
		{
			name: "markers elsewhere are dropped",
			in:   "`timescale 1ns/1ps\n`define W 8\nmodule tb; endmodule",
			want: "`timescale 1ns/1ps\ndefine W 8\nmodule tb; endmodule",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTestbench(tt.in))
		})
	}
}

func TestNormalizeTestbenchIdempotent(t *testing.T) {
	inputs := []string{
		"module tb; endmodule",
		"timescale 1ns/1ps\nmodule tb; endmodule",
		"``` `timescale 1ns/1ps\n```",
		"",
	}

	for _, in := range inputs {
		once := NormalizeTestbench(in)
		twice := NormalizeTestbench(once)
		assert.Equal(t, once, twice, "input %q", in)
		assert.Equal(t, 1, strings.Count(once, "`"), "input %q", in)
	}
}
