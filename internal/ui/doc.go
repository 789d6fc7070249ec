// Package ui renders sync progress and summaries for the terminal.
//
// Progress is a single line rewritten in place with a carriage return:
//
//	[12/340] FOUND     CACHED https://letterboxd.com/film/the-matrix
//
// The line is padded to a fixed width so a short update fully covers a longer one.
// Colours come from a small [lipgloss] palette; lipgloss drops them when the output
// is not a terminal.
package ui
