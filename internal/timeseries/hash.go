package timeseries

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DomainTable separates table hashes from any other hash this module computes.
const DomainTable = "laborsync/table/v1"

// Hash returns a content hash of the table: SHA256(domain + 0x00 + body).
//
// The body lists the sorted columns, then every populated cell in month and
// column order with shortest round-trip float formatting. Two tables hash
// equal exactly when Equal reports true.
func (t *Table) Hash() string {
	if t == nil {
		t = New()
	}
	h := sha256.New()
	h.Write([]byte(DomainTable))
	h.Write([]byte{0x00})

	cols := t.Columns()
	for _, c := range cols {
		h.Write([]byte(c))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{'\n'})

	for _, m := range t.Months() {
		row := t.rows[m]
		h.Write([]byte(m.String()))
		for _, c := range cols {
			v, ok := row[c]
			if !ok {
				continue
			}
			h.Write([]byte{0x1e})
			h.Write([]byte(c))
			h.Write([]byte{0x1f})
			h.Write([]byte(strconv.FormatFloat(v, 'g', -1, 64)))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
