package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pbaille/decklist/internal/classifier"
	"github.com/pbaille/decklist/internal/export"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const pageTitle = "MTG Decklist to Table Converter"

const pageStyle = `body{font-family:sans-serif;margin:2em}
table{border-collapse:collapse;font-size:0.9em}
th,td{border:1px solid #ccc;padding:4px 8px;text-align:left;vertical-align:top}
td.oracle{white-space:pre-wrap;max-width:30em}
.error{color:#b00020}`

// writeHTML renders a document node tree
func writeHTML(w http.ResponseWriter, status int, doc *html.Node) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		http.Error(w, "render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func el(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

func document(body ...*html.Node) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(el(atom.Html, nil,
		el(atom.Head, nil,
			el(atom.Meta, attrs("charset", "utf-8")),
			el(atom.Title, nil, text(pageTitle)),
			el(atom.Style, nil, text(pageStyle)),
		),
		el(atom.Body, nil, append([]*html.Node{el(atom.H1, nil, text(pageTitle))}, body...)...),
	))
	return doc
}

func uploadForm(archive bool) *html.Node {
	form := el(atom.Form, attrs("method", "post", "action", "/convert", "enctype", "multipart/form-data"),
		el(atom.Label, nil,
			text("Upload your decklist (.txt) "),
			el(atom.Input, attrs("type", "file", "name", "file", "accept", ".txt,text/plain", "required", "")),
		),
	)
	if archive {
		form.AppendChild(el(atom.Label, nil,
			el(atom.Input, attrs("type", "checkbox", "name", "save", "value", "true")),
			text(" Save to archive"),
		))
	}
	form.AppendChild(el(atom.Button, attrs("type", "submit"), text("Convert")))
	return form
}

func uploadPage(archive bool, errMsg string) *html.Node {
	var errNode *html.Node
	if errMsg != "" {
		errNode = el(atom.P, attrs("class", "error"), text(errMsg))
	}
	return document(errNode, uploadForm(archive))
}

func resultPage(up *upload) *html.Node {
	href := "data:text/csv;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(up.csv)

	status := fmt.Sprintf("%s: %d cards resolved", up.filename, len(up.table.Rows))
	if up.table.Skipped > 0 {
		status += fmt.Sprintf(", %d not found", up.table.Skipped)
	}
	if up.run != nil {
		status += ", saved as run " + up.run.ID
	}

	return document(
		el(atom.P, nil, text(status)),
		el(atom.P, nil,
			el(atom.A, attrs("href", href, "download", export.DefaultFilename), text("Download CSV")),
			text(" | "),
			el(atom.A, attrs("href", "/"), text("Convert another")),
		),
		el(atom.H2, nil, text("Roles")),
		summaryTable(up),
		el(atom.H2, nil, text("Cards")),
		cardTable(up),
	)
}

func summaryTable(up *upload) *html.Node {
	counts := classifier.Summarize(up.table.Rows)
	tbody := el(atom.Tbody, nil)
	for _, role := range classifier.Roles() {
		if counts[role] == 0 {
			continue
		}
		tbody.AppendChild(el(atom.Tr, nil,
			el(atom.Td, nil, text(string(role))),
			el(atom.Td, nil, text(strconv.Itoa(counts[role]))),
		))
	}
	return el(atom.Table, nil,
		el(atom.Thead, nil, el(atom.Tr, nil,
			el(atom.Th, nil, text("Role")),
			el(atom.Th, nil, text("Cards")),
		)),
		tbody,
	)
}

func cardTable(up *upload) *html.Node {
	head := el(atom.Tr, nil)
	for _, col := range export.Columns {
		head.AppendChild(el(atom.Th, nil, text(col)))
	}

	tbody := el(atom.Tbody, nil)
	for _, row := range up.table.Rows {
		tr := el(atom.Tr, nil)
		for i, cell := range export.Record(row) {
			var a []html.Attribute
			if export.Columns[i] == "Oracle Text" {
				a = attrs("class", "oracle")
			}
			tr.AppendChild(el(atom.Td, a, text(cell)))
		}
		tbody.AppendChild(tr)
	}

	return el(atom.Table, nil, el(atom.Thead, nil, head), tbody)
}
