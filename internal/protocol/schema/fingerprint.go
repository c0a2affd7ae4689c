package schema

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Fingerprint hashes the wire-relevant shape of msgs: ids, names, field
// order, types and bounds. Two schemas with the same fingerprint produce
// identical frames.
func Fingerprint(msgs []MsgSpec) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%d %s\n", m.ID, m.Name)
		for _, f := range m.Fields {
			fmt.Fprintf(&b, "  %s %s\n", f.Name, f.Type)
		}
	}
	return fmt.Sprintf("%016x", murmur3.Sum64([]byte(b.String())))
}
