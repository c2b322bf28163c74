package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mathsigit/kudu/internal/column"
	"github.com/mathsigit/kudu/internal/rowset"
	"github.com/mathsigit/kudu/internal/types"
)

var verifyProbe bool

var verifyCmd = &cobra.Command{
	Use:   "verify <dir>",
	Short: "Check a rowset directory for corruption and key-order violations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(args[0])
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyProbe, "probe", false, "additionally look up every key through the filter and index")
}

const verifyBatchRows = 8192

func runVerify(dir string) error {
	base, err := rowset.OpenRowset(dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}
	defer base.Close()

	schema := base.Schema()
	count, err := base.CountRows()
	if err != nil {
		return err
	}

	iter, err := base.NewIterator([]string{schema.KeyColumn().Name})
	if err != nil {
		return err
	}
	if err := iter.Init(nil); err != nil {
		return err
	}

	keyType := schema.KeyColumn().DataType
	var prev types.Value
	seen := 0
	probed := 0
	for iter.HasNext() {
		n, err := iter.PrepareBatch(verifyBatchRows)
		if err != nil {
			return err
		}
		keys := column.NewColumnWithCapacity(keyType, n)
		if err := iter.MaterializeColumn(0, keys); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			v := keys.Value(i)
			if seen+i > 0 && types.CompareValues(keyType, prev, v) >= 0 {
				return fmt.Errorf("key order violated at row %d: %v !< %v", seen+i, prev, v)
			}
			prev = v
		}
		if verifyProbe {
			for i := 0; i < n; i++ {
				probe, err := rowset.NewKeyProbe(keyType, keys.Value(i))
				if err != nil {
					return err
				}
				present, err := base.CheckRowPresent(probe)
				if err != nil {
					return err
				}
				if !present {
					return fmt.Errorf("row %d: key %v not found through filter+index", seen+i, keys.Value(i))
				}
				ord, err := base.FindRow(probe)
				if err != nil {
					return err
				}
				if ord != seen+i {
					return fmt.Errorf("row %d: lookup returned ordinal %d", seen+i, ord)
				}
				probed++
			}
		}
		seen += n
		if err := iter.FinishBatch(); err != nil {
			return err
		}
	}
	if seen != count {
		return fmt.Errorf("scanned %d rows, metadata claims %d", seen, count)
	}

	fmt.Printf("ok: %d rows, %d columns", count, schema.NumColumns())
	if verifyProbe {
		fmt.Printf(", %d keys probed", probed)
	}
	fmt.Println()
	return nil
}
