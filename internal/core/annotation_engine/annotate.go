// Package annotation_engine turns the HTML review returned by the AI agent
// into an interactive document: it classifies the tables, adds a selection
// control to every row of the actionable ones, renders the user's row
// selections back into the tree and reads the selected rows out again.
package annotation_engine

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Table is a <table> found in the review together with its role.
type Table struct {
	Index int
	Role  Role
	node  *html.Node
}

// TableInfo is the JSON view of a classified table.
type TableInfo struct {
	Index int  `json:"index"`
	Role  Role `json:"role"`
	Rows  int  `json:"rows"`
}

// Document is a parsed review fragment.
type Document struct {
	root   *html.Node
	tables []*Table
}

// Parse reads an HTML fragment and classifies every table in it.
func Parse(fragment string) (*Document, error) {
	root := newElement(atom.Div)
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, fmt.Errorf("parse review html: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	d := &Document{root: root}
	d.classify()
	return d, nil
}

func (d *Document) classify() {
	d.tables = d.tables[:0]
	pos := Position{}
	for i, node := range findAll(d.root, func(n *html.Node) bool { return isElement(n, atom.Table) }) {
		pos.Index = i
		role := Classify(textContent(node), precedingText(node), pos)
		if role == RoleActionableAmendments {
			pos.AmendmentsFound = true
		}
		d.tables = append(d.tables, &Table{Index: i, Role: role, node: node})
	}
}

// Tables returns the classified tables in document order.
func (d *Document) Tables() []TableInfo {
	out := make([]TableInfo, 0, len(d.tables))
	for _, t := range d.tables {
		out = append(out, TableInfo{Index: t.Index, Role: t.Role, Rows: len(t.dataRows())})
	}
	return out
}

// HTML renders the (possibly annotated) fragment.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render review html: %w", err)
		}
	}
	return buf.String(), nil
}

// Annotate adds selection controls to every actionable table and returns the
// number of tables it touched. Running it again adds nothing new.
func (d *Document) Annotate() int {
	n := 0
	for _, t := range d.tables {
		if !t.Role.Actionable() {
			continue
		}
		t.annotate()
		n++
	}
	return n
}

// RowKey is the stable key of a data row: table index and row index.
func RowKey(table, row int) string {
	return strconv.Itoa(table) + "-" + strconv.Itoa(row)
}

func (t *Table) headerRow() *html.Node {
	for _, tr := range tableRows(t.node) {
		if isHeaderRow(tr) {
			return tr
		}
	}
	return nil
}

func (t *Table) headers() []string {
	tr := t.headerRow()
	if tr == nil {
		return nil
	}
	var out []string
	for _, c := range rowCells(tr) {
		if hasRole(c, roleSelectHead) {
			continue
		}
		out = append(out, cellText(c))
	}
	return out
}

func (t *Table) dataRows() []*html.Node {
	var out []*html.Node
	for _, tr := range tableRows(t.node) {
		if !isHeaderRow(tr) {
			out = append(out, tr)
		}
	}
	return out
}

func (t *Table) columns() Columns {
	return ResolveColumns(t.headers())
}

func (t *Table) hasControls() bool {
	return findFirst(t.node, func(n *html.Node) bool { return hasRole(n, roleSelect) }) != nil
}

func (t *Table) annotate() {
	rows := t.dataRows()

	header := t.headerRow()
	if header == nil {
		header = t.synthesizeHeader(rows)
	}
	cells := rowCells(header)
	if len(cells) == 0 || !strings.EqualFold(cellText(cells[len(cells)-1]), "select") {
		th := newElement(atom.Th, html.Attribute{Key: dataRole, Val: roleSelectHead})
		th.AppendChild(newText("Select"))
		header.AppendChild(th)
	}

	for i, tr := range rows {
		if findFirst(tr, func(n *html.Node) bool { return hasRole(n, roleSelect) }) != nil {
			continue
		}
		td := newElement(atom.Td, html.Attribute{Key: dataRole, Val: roleSelectCell})
		td.AppendChild(newElement(atom.Input,
			html.Attribute{Key: "type", Val: "checkbox"},
			html.Attribute{Key: dataRole, Val: roleSelect},
			html.Attribute{Key: dataRow, Val: RowKey(t.Index, i)},
		))
		tr.AppendChild(td)
	}
}

// synthesizeHeader inserts an empty header row as wide as the widest data row.
func (t *Table) synthesizeHeader(rows []*html.Node) *html.Node {
	width := 0
	for _, tr := range rows {
		if n := len(rowCells(tr)); n > width {
			width = n
		}
	}

	thead := newElement(atom.Thead)
	tr := newElement(atom.Tr)
	for i := 0; i < width; i++ {
		tr.AppendChild(newElement(atom.Th))
	}
	thead.AppendChild(tr)

	var before *html.Node
	for c := t.node.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Caption) || isElement(c, atom.Colgroup) || c.Type != html.ElementNode {
			continue
		}
		before = c
		break
	}
	t.node.InsertBefore(thead, before)
	return tr
}
