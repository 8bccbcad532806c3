package aco

import "strings"

// Label converts a location index to its alphabetic display label:
// 0 -> "A", 25 -> "Z", 26 -> "AA".
func Label(i int) string {
	if i < 0 {
		return "?"
	}
	var b []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// PathLabel renders a path as an arrow-separated sequence of labels.
func PathLabel(path []int) string {
	labels := make([]string, len(path))
	for i, p := range path {
		labels[i] = Label(p)
	}
	return strings.Join(labels, " -> ")
}
