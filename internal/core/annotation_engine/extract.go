package annotation_engine

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Row is one amendment candidate read back out of an annotated table.
type Row struct {
	Key                  string `json:"key"`
	Reference            string `json:"reference"`
	RecommendedAmendment string `json:"recommendedAmendment"`
	OriginalClause       string `json:"originalClause"`
	VerificationNote     string `json:"verificationNote"`
	Selected             bool   `json:"selected"`
}

// ExtractRows reads every candidate row of the amendments table, or of the
// first table carrying selection controls when no table was classified as
// amendments. Rows without enough cells for the resolved columns are
// skipped. The result is never nil.
func (d *Document) ExtractRows() []Row {
	rows := []Row{}
	t := d.extractionTable()
	if t == nil {
		return rows
	}

	cols := t.columns()
	need := cols.MaxIndex() + 1
	for i, tr := range t.dataRows() {
		cells := dataCells(tr)
		if len(cells) < need {
			continue
		}

		row := Row{
			Key:                  RowKey(t.Index, i),
			Reference:            cellText(cells[cols[FieldReference]]),
			RecommendedAmendment: cellText(cells[cols[FieldRecommendedAmendment]]),
			OriginalClause:       cellText(cells[cols[FieldOriginalClause]]),
		}

		noteCell := cells[cols[FieldVerificationNote]]
		if v, ok := editedValue(noteCell); ok {
			row.VerificationNote = v
		} else {
			row.VerificationNote = cellText(noteCell)
		}
		if row.VerificationNote == "" {
			row.VerificationNote = cellText(cells[cols[FieldRevisedClause]])
		}

		if ctl := findFirst(tr, func(n *html.Node) bool { return hasRole(n, roleSelect) }); ctl != nil {
			if key, ok := getAttr(ctl, dataRow); ok && key != "" {
				row.Key = key
			}
			_, row.Selected = getAttr(ctl, "checked")
		}

		if row.Reference == "" && row.RecommendedAmendment == "" && row.OriginalClause == "" && !row.Selected {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (d *Document) extractionTable() *Table {
	for _, t := range d.tables {
		if t.Role == RoleActionableAmendments {
			return t
		}
	}
	for _, t := range d.tables {
		if t.hasControls() {
			return t
		}
	}
	return nil
}

// RowsFromSelection renders sel into the document and extracts the rows, so
// the result reflects the explicit state rather than whatever a client last
// did to the markup. The document is modified.
func RowsFromSelection(d *Document, sel Selection) []Row {
	d.ApplySelection(sel)
	return d.ExtractRows()
}

// SelectedRows keeps the rows whose control is checked.
func SelectedRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Selected {
			out = append(out, r)
		}
	}
	return out
}

// editedValue returns the content of an editable field inside the cell.
func editedValue(cell *html.Node) (string, bool) {
	if ta := findFirst(cell, func(n *html.Node) bool { return isElement(n, atom.Textarea) }); ta != nil {
		return strings.TrimSpace(textContent(ta)), true
	}
	in := findFirst(cell, func(n *html.Node) bool {
		if !isElement(n, atom.Input) {
			return false
		}
		typ, _ := getAttr(n, "type")
		return typ == "" || strings.EqualFold(typ, "text")
	})
	if in != nil {
		v, _ := getAttr(in, "value")
		return strings.TrimSpace(v), true
	}
	return "", false
}
