package script

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strconv"
)

// computeHash hashes the declarative content of the definition. Every field
// is length-prefixed so that adjacent fields cannot run together. Source is
// left out: moving a file does not change what an operation does.
func (d *Definition) computeHash() string {
	h := sha256.New()

	writeField(h, d.Name)
	writeField(h, d.Category)
	writeField(h, d.Doc)
	writeField(h, strconv.FormatBool(d.Listed))
	writeField(h, strconv.FormatBool(d.Plot))

	writeField(h, strconv.Itoa(len(d.Queries)))
	for _, q := range d.Queries {
		writeField(h, q.Name)
		writeField(h, q.Prompt)
		writeField(h, q.Kind.String())
		mode := "all"
		if q.ColumnMode != nil {
			mode = q.ColumnMode.String()
		}
		writeField(h, mode)
		writeField(h, strconv.Itoa(len(q.Options)))
		for _, o := range q.Options {
			writeField(h, o)
		}
		writeField(h, bound(q.Min))
		writeField(h, bound(q.Max))
		writeField(h, q.Pattern)
		if v, ok := q.Value.(string); ok {
			writeField(h, v)
		} else {
			writeField(h, "")
		}
	}

	if d.displayName != nil {
		writeField(h, d.displayName.OutputXML(false))
	} else {
		writeField(h, "")
	}
	writeField(h, d.computation.OutputXML(false))

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func bound(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}
