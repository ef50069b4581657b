package routeros

import (
	"sort"
	"strings"

	goros "github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
)

// commandArgs renders params as the words that follow a command path.
// Attribute words come first and query words ("?" keys) last, each group
// sorted by key. "proplist" becomes the ".proplist" selector. An empty
// value is sent as a bare flag such as "=once=".
func commandArgs(params map[string]string) []string {
	if len(params) == 0 {
		return nil
	}
	var attrs, queries []string
	for key, value := range params {
		key = strings.TrimSpace(key)
		switch {
		case key == "" || key == "?" || key == "=":
		case key == "proplist" || key == ".proplist":
			attrs = append(attrs, "=.proplist="+value)
		case strings.HasPrefix(key, "?"):
			queries = append(queries, key+"="+value)
		default:
			attrs = append(attrs, "="+strings.TrimPrefix(key, "=")+"="+value)
		}
	}
	sort.Strings(attrs)
	sort.Strings(queries)
	return append(attrs, queries...)
}

// replyRows flattens the !re sentences of a reply into rows. The !done
// sentence carries no row data for print and monitor commands.
func replyRows(reply *goros.Reply) []map[string]string {
	if reply == nil {
		return []map[string]string{}
	}
	rows := make([]map[string]string, 0, len(reply.Re))
	for _, sentence := range reply.Re {
		if row := sentenceRow(sentence); len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

func sentenceRow(sentence *proto.Sentence) map[string]string {
	if sentence == nil {
		return nil
	}
	row := make(map[string]string, len(sentence.Map)+len(sentence.List))
	for key, value := range sentence.Map {
		row[key] = value
	}
	for _, pair := range sentence.List {
		row[pair.Key] = pair.Value
	}
	return row
}
