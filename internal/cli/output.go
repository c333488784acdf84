package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/syssam/lazysql/dialect/sql"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml", "msgpack"}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// writeOutput encodes v, a count or a list of collection items, in format.
// Records keep their column order in every format.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		node, err := yamlValue(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return err
		}
		return enc.Close()
	case "msgpack":
		return msgpack.NewEncoder(w).Encode(msgpackValue(v))
	case "text":
		return writeText(w, v)
	default:
		return fmt.Errorf("invalid format %q: must be one of %v", format, ValidFormats)
	}
}

func yamlValue(v any) (any, error) {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			y, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = y
		}
		return out, nil
	case sql.Record:
		node := &yaml.Node{Kind: yaml.MappingNode}
		values := v.Values()
		for i, c := range v.Columns() {
			val := &yaml.Node{}
			if err := val.Encode(values[i]); err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: c}, val)
		}
		return node, nil
	default:
		return v, nil
	}
}

// msgpackRecord encodes a record as a map in column order.
type msgpackRecord struct {
	sql.Record
}

func (r msgpackRecord) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(r.Len()); err != nil {
		return err
	}
	values := r.Values()
	for i, c := range r.Columns() {
		if err := enc.EncodeString(c); err != nil {
			return err
		}
		if err := enc.Encode(values[i]); err != nil {
			return err
		}
	}
	return nil
}

func msgpackValue(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = msgpackValue(item)
		}
		return out
	case sql.Record:
		return msgpackRecord{v}
	default:
		return v
	}
}

// writeText prints records as a tab aligned table with a header taken from
// the first record. Other items are printed one per line.
func writeText(w io.Writer, v any) error {
	items, ok := v.([]any)
	if !ok {
		_, err := fmt.Fprintln(w, textValue(v))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, item := range items {
		var cells []string
		switch item := item.(type) {
		case sql.Record:
			if i == 0 {
				fmt.Fprintln(tw, strings.Join(item.Columns(), "\t"))
			}
			for _, val := range item.Values() {
				cells = append(cells, textValue(val))
			}
		case []any:
			for _, val := range item {
				cells = append(cells, textValue(val))
			}
		default:
			cells = []string{textValue(item)}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func textValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
