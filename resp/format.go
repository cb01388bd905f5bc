package resp

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a reply for humans, in the style of redis-cli.
func Format(node Node) string {
	var b strings.Builder
	format(&b, node, "")
	return b.String()
}

func format(b *strings.Builder, node Node, indent string) {
	switch n := node.(type) {
	case SimpleString:
		b.WriteString(n.Value)
	case Error:
		fmt.Fprintf(b, "(error) %s", n.Message)
	case Integer:
		fmt.Fprintf(b, "(integer) %d", n.Value)
	case Double:
		fmt.Fprintf(b, "(double) %s", strconv.FormatFloat(n.Value, 'g', -1, 64))
	case Boolean:
		if n.Value {
			b.WriteString("(true)")
		} else {
			b.WriteString("(false)")
		}
	case BlobString:
		b.WriteString(strconv.Quote(n.Value))
	case Null:
		b.WriteString("(nil)")
	case Array:
		if len(n.Elements) == 0 {
			b.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(n.Elements)))
		for i, elem := range n.Elements {
			if i > 0 {
				b.WriteString("\n" + indent)
			}
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			b.WriteString(prefix)
			format(b, elem, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		b.WriteString("(unknown)")
	}
}

// FormatRaw renders a reply without decoration, one value per line.
func FormatRaw(node Node) string {
	switch n := node.(type) {
	case SimpleString:
		return n.Value
	case Error:
		return n.Message
	case Integer:
		return strconv.FormatInt(n.Value, 10)
	case Double:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(n.Value)
	case BlobString:
		return n.Value
	case Null:
		return ""
	case Array:
		parts := make([]string, 0, len(n.Elements))
		for _, elem := range n.Elements {
			parts = append(parts, FormatRaw(elem))
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
