// Copyright (c) 2025 Castline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"castline/cli/internal/httperrors"
	"castline/cli/internal/query"
)

var selectOpts struct {
	tables  []string
	columns string
	count   string
	match   []string
	filters []string
	order   string
	rng     string
	paging  bool
	nocache bool
	asJSON  bool
}

// selectCmd reads rows from one or more tables through the cached query layer.
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Read rows from one or more tables",
	Long: `The select command runs a cached, de-duplicated read across one or more tables
and prints the unioned rows in table order.

Match entries are equality filters; a JSON list value becomes an "in" filter and
a string containing % becomes a case-insensitive pattern. Extra filters take the
form column:op:value with op one of eq, in, not_in, not_overlaps, pattern.

Example:
  castline select --table chats --match is_temporary=false --order created_at:desc --range 0:4 --count exact`,

	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildSelectRequest()
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		q, err := a.data.Query()
		if err != nil {
			return err
		}

		stop := spin("Querying " + fmt.Sprint(req.Tables))
		resp, err := q.Select(cmd.Context(), req)
		stop()
		if err != nil {
			if a.cfg.Tables.DSN == "" {
				return httperrors.FormatNetworkError(err, "querying "+httperrors.ExtractHostFromURL(a.cfg.Tables.RESTURL))
			}
			return err
		}

		if selectOpts.asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		return renderRows(resp)
	},
}

func buildSelectRequest() (query.Request, error) {
	match, err := parseMatch(selectOpts.match)
	if err != nil {
		return query.Request{}, err
	}
	filters, err := parseFilters(selectOpts.filters)
	if err != nil {
		return query.Request{}, err
	}
	order, err := parseOrder(selectOpts.order)
	if err != nil {
		return query.Request{}, err
	}
	rng, err := parseRange(selectOpts.rng)
	if err != nil {
		return query.Request{}, err
	}
	req := query.Request{
		Tables:  selectOpts.tables,
		Columns: selectOpts.columns,
		Count:   query.CountOption(selectOpts.count),
		Match:   match,
		Range:   rng,
		OrderBy: order,
		Filters: filters,
		Paging:  selectOpts.paging,
		NoCache: selectOpts.nocache,
	}
	return req, req.Validate()
}

// renderRows prints rows as a table whose columns are the sorted union of all row keys.
func renderRows(resp query.Response) error {
	if len(resp.Data) == 0 {
		pterm.Println("No rows.")
	} else {
		seen := map[string]struct{}{}
		var cols []string
		for _, r := range resp.Data {
			for k := range r {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					cols = append(cols, k)
				}
			}
		}
		sort.Strings(cols)

		data := pterm.TableData{cols}
		for _, r := range resp.Data {
			line := make([]string, len(cols))
			for i, c := range cols {
				if v, ok := r[c]; ok && v != nil {
					line[i] = fmt.Sprint(v)
				}
			}
			data = append(data, line)
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%d row(s)", len(resp.Data))
	if resp.Count != nil {
		summary += fmt.Sprintf(", %d total", *resp.Count)
	}
	if resp.Pages != nil {
		summary += fmt.Sprintf(", %d page(s)", len(resp.Pages))
	}
	pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint(summary))
	return nil
}

func init() {
	f := selectCmd.Flags()
	f.StringSliceVar(&selectOpts.tables, "table", nil, "Table to read (repeatable; results are unioned in order)")
	f.StringVar(&selectOpts.columns, "columns", "*", "Comma separated columns to return")
	f.StringVar(&selectOpts.count, "count", "", "Count rows: exact, planned or estimated")
	f.StringArrayVar(&selectOpts.match, "match", nil, "Match column=value (repeatable)")
	f.StringArrayVar(&selectOpts.filters, "filter", nil, "Extra filter column:op:value (repeatable)")
	f.StringVar(&selectOpts.order, "order", "", "Order by column[:asc|desc]")
	f.StringVar(&selectOpts.rng, "range", "", "Inclusive row window from:to")
	f.BoolVar(&selectOpts.paging, "paging", false, "Split results into pages")
	f.BoolVar(&selectOpts.nocache, "nocache", false, "Bypass the response cache")
	f.BoolVar(&selectOpts.asJSON, "json", false, "Print the raw response as JSON")
	_ = selectCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(selectCmd)
}
