package main

import (
	"fmt"
	"strings"
)

// scrollSeparator is appended to scrolling text so the loop point is visible
const scrollSeparator = "  •  "

// formatTime converts seconds to MM:SS; minutes keep counting past an hour
func formatTime(seconds int64) string {
	if seconds < 0 {
		return "-" + formatTime(-seconds)
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// scrollText returns a max-rune window of text starting at offset, looping
// through scrollSeparator. Text that fits is returned unchanged.
func scrollText(text string, max int, offset int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	loop := append(runes, []rune(scrollSeparator)...)
	offset %= len(loop)

	var b strings.Builder
	for i := 0; i < max; i++ {
		b.WriteRune(loop[(offset+i)%len(loop)])
	}
	return b.String()
}
