package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/rowset"
)

var (
	dumpRows   int
	dumpAsJSON bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <dir>",
	Short: "Print the layout and leading rows of a rowset directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(args[0])
	},
}

func init() {
	dumpCmd.Flags().IntVar(&dumpRows, "rows", 20, "number of leading rows to print (0 to skip)")
	dumpCmd.Flags().BoolVar(&dumpAsJSON, "json", false, "print rows as JSON objects")
}

func runDump(dir string) error {
	base, err := rowset.OpenRowset(dir)
	if err != nil {
		return err
	}
	defer base.Close()

	schema := base.Schema()
	count, err := base.CountRows()
	if err != nil {
		return err
	}

	fmt.Printf("rowset:  %s\n", dir)
	fmt.Printf("id:      %s\n", base.Meta().ID)
	fmt.Printf("rows:    %d\n", count)
	fmt.Printf("size:    %d bytes\n", base.EstimateOnDiskSize())
	fmt.Printf("key:     %s\n", schema.KeyColumn().Name)
	fmt.Println("columns:")
	for i, def := range schema.Columns {
		r := base.ColumnReader(i)
		fmt.Printf("  %-20s %-10s blocks=%-6d size=%d\n",
			def.Name, def.DataType.Name(), r.NumBlocks(), r.OnDiskSize())
	}

	if dumpRows <= 0 {
		return nil
	}

	iter, err := base.NewIterator(schema.ColumnNames())
	if err != nil {
		return err
	}
	if err := iter.Init(nil); err != nil {
		return err
	}

	n := dumpRows
	if n > count {
		n = count
	}
	prepared, err := iter.PrepareBatch(n)
	if err != nil {
		return err
	}
	if prepared == 0 {
		return nil
	}
	cols := make([]column.Column, schema.NumColumns())
	for i := range cols {
		cols[i] = column.NewColumnWithCapacity(schema.Columns[i].DataType, prepared)
		if err := iter.MaterializeColumn(i, cols[i]); err != nil {
			return err
		}
	}

	fmt.Println("rows:")
	enc := json.NewEncoder(os.Stdout)
	for row := 0; row < prepared; row++ {
		if dumpAsJSON {
			obj := make(map[string]interface{}, len(cols))
			for i, def := range schema.Columns {
				obj[def.Name] = cols[i].Value(row)
			}
			if err := enc.Encode(obj); err != nil {
				return err
			}
			continue
		}
		for i := range cols {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(cols[i].Value(row))
		}
		fmt.Println()
	}
	return iter.FinishBatch()
}
