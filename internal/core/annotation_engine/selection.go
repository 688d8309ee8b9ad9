package annotation_engine

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RowState is the user's decision on one annotated row.
//
// Selected: the amendment is accepted.
// Note:     the edited verification text; empty means the revised clause is used.
type RowState struct {
	Selected bool   `json:"selected"`
	Note     string `json:"note,omitempty"`
}

// Selection maps row keys (see RowKey) to their state. Rows that are absent
// are unselected.
type Selection map[string]RowState

// Count returns the number of selected rows.
func (s Selection) Count() int {
	n := 0
	for _, st := range s {
		if st.Selected {
			n++
		}
	}
	return n
}

// annotatedRow is a data row carrying a selection control.
type annotatedRow struct {
	key     string
	tr      *html.Node
	control *html.Node
	table   *Table
}

func (d *Document) annotatedRows() []annotatedRow {
	var out []annotatedRow
	for _, t := range d.tables {
		for _, tr := range t.dataRows() {
			ctl := findFirst(tr, func(n *html.Node) bool { return hasRole(n, roleSelect) })
			if ctl == nil {
				continue
			}
			key, _ := getAttr(ctl, dataRow)
			out = append(out, annotatedRow{key: key, tr: tr, control: ctl, table: t})
		}
	}
	return out
}

// RowKeys lists the keys of every annotated row in document order.
func (d *Document) RowKeys() []string {
	rows := d.annotatedRows()
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.key)
	}
	return keys
}

// ApplySelection renders sel into the annotated rows: selected rows get a
// checked control and an editable note in the verification column, every
// other row is put back to its original display. It returns the number of
// rows rendered as selected.
func (d *Document) ApplySelection(sel Selection) int {
	n := 0
	cols := map[*Table]Columns{}
	for _, r := range d.annotatedRows() {
		c, ok := cols[r.table]
		if !ok {
			c = r.table.columns()
			cols[r.table] = c
		}
		state := sel[r.key]
		renderRow(r, c, state)
		if state.Selected {
			n++
		}
	}
	return n
}

func renderRow(r annotatedRow, cols Columns, state RowState) {
	cells := dataCells(r.tr)
	var noteCell *html.Node
	if idx := cols[FieldVerificationNote]; idx < len(cells) {
		noteCell = cells[idx]
	}

	if !state.Selected {
		removeAttr(r.control, "checked")
		if noteCell != nil {
			restoreCell(noteCell)
		}
		return
	}

	setAttr(r.control, "checked", "")
	if noteCell == nil {
		return
	}

	text := state.Note
	if text == "" {
		text = defaultNote(cells, cols)
	}

	area := findChildRole(noteCell, roleNote)
	if area == nil {
		if noteCell.FirstChild != nil && findChildRole(noteCell, roleOriginal) == nil {
			holder := newElement(atom.Div,
				html.Attribute{Key: dataRole, Val: roleOriginal},
				html.Attribute{Key: "hidden"},
			)
			for c := noteCell.FirstChild; c != nil; c = noteCell.FirstChild {
				noteCell.RemoveChild(c)
				holder.AppendChild(c)
			}
			noteCell.AppendChild(holder)
		}
		area = newElement(atom.Textarea, html.Attribute{Key: dataRole, Val: roleNote})
		noteCell.AppendChild(area)
	}
	for c := area.FirstChild; c != nil; c = area.FirstChild {
		area.RemoveChild(c)
	}
	area.AppendChild(newText(text))
}

// restoreCell drops the editable note and puts the original content back.
func restoreCell(cell *html.Node) {
	if area := findChildRole(cell, roleNote); area != nil {
		cell.RemoveChild(area)
	}
	if holder := findChildRole(cell, roleOriginal); holder != nil {
		unwrap(holder)
	}
}

// defaultNote is the revised clause text. When the revised clause shares
// the verification cell, its text has already moved into the hidden holder.
func defaultNote(cells []*html.Node, cols Columns) string {
	idx := cols[FieldRevisedClause]
	if idx >= len(cells) {
		return ""
	}
	if holder := findChildRole(cells[idx], roleOriginal); holder != nil {
		return normalizeSpace(textContent(holder))
	}
	return cellText(cells[idx])
}

// ReadSelection recovers the selection state from a document whose controls
// were toggled by a client. Notes equal to the revised-clause default are
// left empty.
func (d *Document) ReadSelection() Selection {
	sel := Selection{}
	for _, r := range d.annotatedRows() {
		if _, checked := getAttr(r.control, "checked"); !checked {
			continue
		}
		cells := dataCells(r.tr)
		cols := r.table.columns()
		st := RowState{Selected: true}
		if idx := cols[FieldVerificationNote]; idx < len(cells) {
			if note, ok := editedValue(cells[idx]); ok && note != defaultNote(cells, cols) {
				st.Note = note
			}
		}
		sel[r.key] = st
	}
	return sel
}

func findChildRole(n *html.Node, role string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasRole(c, role) {
			return c
		}
	}
	return nil
}

// dataCells returns the cells of a row without the inserted select cell, so
// column indexes stay aligned with the headers the agent wrote.
func dataCells(tr *html.Node) []*html.Node {
	all := rowCells(tr)
	out := all[:0:0]
	for _, c := range all {
		if hasRole(c, roleSelectCell) {
			continue
		}
		out = append(out, c)
	}
	return out
}
