package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"castline/cli/internal/query"
)

var writeOpts struct {
	rows    string
	set     string
	filters []string
	args    []string
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var insertCmd = &cobra.Command{
	Use:   "insert TABLE",
	Short: "Insert rows into a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rows []query.Row
		if err := json.Unmarshal([]byte(writeOpts.rows), &rows); err != nil {
			var one query.Row
			if err2 := json.Unmarshal([]byte(writeOpts.rows), &one); err2 != nil {
				return fmt.Errorf("--rows must be a JSON object or array of objects: %w", err)
			}
			rows = []query.Row{one}
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
		out, err := q.Insert(cmd.Context(), args[0], rows)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update TABLE",
	Short: "Update rows matching filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var values query.Row
		if err := json.Unmarshal([]byte(writeOpts.set), &values); err != nil {
			return fmt.Errorf("--set must be a JSON object: %w", err)
		}
		filters, err := parseFilters(writeOpts.filters)
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
		out, err := q.Update(cmd.Context(), args[0], values, filters...)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete TABLE",
	Short: "Delete rows matching filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters(writeOpts.filters)
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
		out, err := q.Delete(cmd.Context(), args[0], filters...)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var rpcCmd = &cobra.Command{
	Use:   "rpc FUNCTION",
	Short: "Call a remote procedure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fnArgs, err := parseMatch(writeOpts.args)
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
		out, err := q.Call(cmd.Context(), args[0], fnArgs)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	insertCmd.Flags().StringVar(&writeOpts.rows, "rows", "", "Row or rows as JSON")
	_ = insertCmd.MarkFlagRequired("rows")

	updateCmd.Flags().StringVar(&writeOpts.set, "set", "", "Values to set as a JSON object")
	updateCmd.Flags().StringArrayVar(&writeOpts.filters, "filter", nil, "Filter column:op:value (repeatable, at least one)")
	_ = updateCmd.MarkFlagRequired("set")

	deleteCmd.Flags().StringArrayVar(&writeOpts.filters, "filter", nil, "Filter column:op:value (repeatable, at least one)")

	rpcCmd.Flags().StringArrayVar(&writeOpts.args, "arg", nil, "Argument name=value (repeatable)")

	rootCmd.AddCommand(insertCmd, updateCmd, deleteCmd, rpcCmd)
}
