package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dataprovider/internal/record"
	"github.com/roach88/dataprovider/internal/route"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	req := request{Op: opQuery}

	cmd := &cobra.Command{
		Use:   "query <address>",
		Short: "Read rows at an address",
		Long: `Read the rows addressed by a collection or item address.

--where narrows the addressed rows; it can never widen an item address.
Each ? placeholder binds the next --arg in order.

Examples:
  dataprovider query images
  dataprovider query images --where "width > ?" --arg 600 --sort "title DESC"
  dataprovider query images/k1 --columns image_id,title
  dataprovider query images --columns title --distinct`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Address = args[0]
			return runRequest(rootOpts, cmd, req)
		},
	}

	cmd.Flags().StringSliceVar(&req.Columns, "columns", nil, "columns to return (default all)")
	cmd.Flags().StringVar(&req.Selection, "where", "", "predicate with ? placeholders")
	cmd.Flags().StringArrayVar(&req.Args, "arg", nil, "placeholder value (repeatable)")
	cmd.Flags().StringVar(&req.Sort, "sort", "", `sort order, e.g. "title ASC, width DESC"`)
	cmd.Flags().BoolVar(&req.Distinct, "distinct", false, "drop duplicate rows")

	return cmd
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	var values string

	cmd := &cobra.Command{
		Use:   "insert <collection-address>",
		Short: "Insert a row into a collection",
		Long: `Insert a row into a collection and print the new item's address.

Example:
  dataprovider insert images --values '{"image_id":"k1","title":"Cat"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseValues(values)
			if err != nil {
				return err
			}
			return runRequest(rootOpts, cmd, request{Op: opInsert, Address: args[0], Values: rec})
		},
	}

	cmd.Flags().StringVar(&values, "values", "{}", "row values as a JSON object")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	req := request{Op: opUpdate}
	var values string

	cmd := &cobra.Command{
		Use:   "update <address>",
		Short: "Update rows at an address",
		Long: `Set values on the rows addressed, optionally narrowed by --where.
A change is announced even when no row matched.

Example:
  dataprovider update images/k1 --values '{"title":"Dog"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseValues(values)
			if err != nil {
				return err
			}
			req.Address = args[0]
			req.Values = rec
			return runRequest(rootOpts, cmd, req)
		},
	}

	cmd.Flags().StringVar(&values, "values", "", "values to set as a JSON object (required)")
	cmd.Flags().StringVar(&req.Selection, "where", "", "predicate with ? placeholders")
	cmd.Flags().StringArrayVar(&req.Args, "arg", nil, "placeholder value (repeatable)")
	_ = cmd.MarkFlagRequired("values")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	req := request{Op: opDelete}

	cmd := &cobra.Command{
		Use:   "delete <address>",
		Short: "Delete rows at an address",
		Long: `Delete the rows addressed, optionally narrowed by --where.

Deleting the whole-store address ("/") drops and recreates every table.

Examples:
  dataprovider delete history --where "viewed_at < ?" --arg 1700000000
  dataprovider delete /`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Address = args[0]
			return runRequest(rootOpts, cmd, req)
		},
	}

	cmd.Flags().StringVar(&req.Selection, "where", "", "predicate with ? placeholders")
	cmd.Flags().StringArrayVar(&req.Args, "arg", nil, "placeholder value (repeatable)")

	return cmd
}

// NewTypeCommand creates the type command.
func NewTypeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "type <address>",
		Short:         "Print the content type of an address",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(rootOpts, cmd, request{Op: opType, Address: args[0]})
		},
	}
}

// runRequest opens the provider, runs one request with the CLI watching the
// whole store, and prints the response.
func runRequest(opts *RootOptions, cmd *cobra.Command, req request) error {
	e, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	f := opts.formatter(cmd)

	if err := e.watch(route.Root(e.cfg.Authority), true); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch", err)
	}

	resp, err := e.do(cmd.Context(), req)
	if err != nil {
		if GetExitCode(err) == ExitCommandError {
			return err
		}
		return f.Fail(err)
	}
	return writeResponse(f, resp)
}

// writeResponse prints resp in the formatter's format.
func writeResponse(f *OutputFormatter, resp *response) error {
	if f.Format == "json" {
		return f.Success(resp)
	}
	return writeText(f.Writer, resp)
}

func writeText(w io.Writer, resp *response) error {
	switch resp.Op {
	case opQuery:
		for _, row := range resp.Rows {
			line, err := record.MarshalCanonical(row)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(line))
		}
		fmt.Fprintf(w, "(%d row(s))\n", len(resp.Rows))
	case opInsert:
		fmt.Fprintf(w, "inserted %s\n", resp.Item)
	case opUpdate:
		fmt.Fprintf(w, "updated %d row(s)\n", *resp.Count)
	case opDelete:
		fmt.Fprintf(w, "deleted %d row(s)\n", *resp.Count)
	case opType:
		fmt.Fprintln(w, resp.Type)
	}

	for _, n := range resp.Notifications {
		fmt.Fprintf(w, "notified %s (seq %d)\n", n.Address, n.Seq)
	}
	return nil
}

func parseValues(s string) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --values JSON", err)
	}
	return rec, nil
}
