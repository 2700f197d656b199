package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netcheck-network/netcheck/pkg/cli"
	"github.com/netcheck-network/netcheck/pkg/decipher"
)

// newParseCmd parses captured device output offline against a schema,
// useful when developing schemas before a suite ever touches a device.
func newParseCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "parse <output.txt>",
		Short: "Parse captured CLI output against a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := decipher.LoadSchemaFile(schemaPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			res, err := decipher.Parse(string(data), schema)
			if err != nil {
				return fmt.Errorf("schema %s: %w", schema.Name, err)
			}

			printResult(res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "response schema YAML file")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func printResult(res *decipher.Result) {
	if res.Table != nil {
		tbl := cli.NewTable(os.Stdout, res.Table.Columns...)
		for _, row := range res.Table.Rows {
			cells := make([]string, len(res.Table.Columns))
			for i, col := range res.Table.Columns {
				cells[i] = strings.Join(row.All(col), ", ")
			}
			tbl.Row(cells...)
		}
		tbl.Flush()
	}
	if res.Tree != nil {
		fmt.Print(res.Tree.Serialize(2))
	}

	if len(res.Captures) > 0 {
		names := make([]string, 0, len(res.Captures))
		for name := range res.Captures {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println()
		for _, name := range names {
			fmt.Printf("%s = %s\n", cli.Bold(name), strings.Join(res.Captures[name], ", "))
		}
	}

	for _, sk := range res.Skipped() {
		fmt.Fprintf(os.Stderr, "%s line %d: %s (%s)\n",
			cli.Yellow("skipped"), sk.Line, cli.Ellipsis(sk.Text, 60), sk.Reason)
	}
}
