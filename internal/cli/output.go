package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/tidwall/pretty"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}

// table prints rows under a header, columns aligned.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, r := range rows {
		writeRow(tw, r)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cols []string) {
	for i, c := range cols {
		if i > 0 {
			io.WriteString(w, "\t")
		}
		io.WriteString(w, c)
	}
	io.WriteString(w, "\n")
}

func printDepartments(w io.Writer, ds []types.Department) error {
	if flags.jsonMode {
		return printJSON(w, ds)
	}
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{d.ID.String(), d.Name, d.Slug})
	}
	return table(w, []string{"ID", "NAME", "SLUG"}, rows)
}

// categoryView pairs a category with the department name resolved from the
// department store, when it is loaded.
type categoryView struct {
	types.Category
	Department string `json:"department,omitempty"`
}

func printCategories(w io.Writer, cs []categoryView) error {
	if flags.jsonMode {
		return printJSON(w, cs)
	}
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{c.ID.String(), c.Name, c.Slug, orID(c.Department, c.DepartmentID), c.ParentID.String()})
	}
	return table(w, []string{"ID", "NAME", "SLUG", "DEPARTMENT", "PARENT"}, rows)
}

type productView struct {
	types.Product
	Department string `json:"department,omitempty"`
	Category   string `json:"category,omitempty"`
}

func printProducts(w io.Writer, ps []productView) error {
	if flags.jsonMode {
		return printJSON(w, ps)
	}
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		qty := ""
		if p.Quantity != nil {
			qty = strconv.Itoa(*p.Quantity)
		}
		rows = append(rows, []string{
			p.ID.String(),
			p.Name,
			p.Slug,
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			p.Status,
			qty,
			orID(p.Department, p.DepartmentID),
			orID(p.Category, p.CategoryID),
		})
	}
	return table(w, []string{"ID", "NAME", "SLUG", "PRICE", "STATUS", "QTY", "DEPARTMENT", "CATEGORY"}, rows)
}

func printUser(w io.Writer, u types.User) error {
	if flags.jsonMode {
		return printJSON(w, u)
	}
	_, err := fmt.Fprintf(w, "%s <%s> (id %s)\n", u.Name, u.Email, u.ID)
	return err
}

func orID(name string, id types.ID) string {
	if name != "" {
		return name
	}
	return id.String()
}
