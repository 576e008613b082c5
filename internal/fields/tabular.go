package fields

import (
	"fmt"

	"github.com/joseph-ayodele/docextract/constants"
)

// Rows projects a field map into header + data rows for types that have a natural
// table shape. Other types return nil.
func Rows(t constants.DocumentType, fm *FieldMap) [][]string {
	switch t {
	case constants.Marksheet:
		subjects := fm.Map("subjects")
		rows := [][]string{{"Subject", "Marks"}}
		for _, k := range subjects.Keys() {
			v, _ := subjects.Get(k)
			rows = append(rows, []string{k, cell(v)})
		}
		return rows
	case constants.Cheque, constants.LorryChallan:
		flat := fm.Map("fields")
		rows := [][]string{{"Field", "Value"}}
		for _, k := range flat.Keys() {
			v, _ := flat.Get(k)
			rows = append(rows, []string{k, cell(v)})
		}
		return rows
	default:
		return nil
	}
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
