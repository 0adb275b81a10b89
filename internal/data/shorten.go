package data

// Ellipsis marks the text removed by Shorten.
const Ellipsis = "…"

// Shorten trims s to at most max runes by keeping its head and tail. From
// four runes up the removed middle is replaced by Ellipsis, which counts
// toward max.
func Shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	if max < 4 {
		head := (max + 1) / 2
		tail := max / 2
		return string(r[:head]) + string(r[len(r)-tail:])
	}
	head := max / 2
	tail := (max - 1) / 2
	return string(r[:head]) + Ellipsis + string(r[len(r)-tail:])
}
