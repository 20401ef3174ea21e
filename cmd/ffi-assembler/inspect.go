package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	perr "ffiassembler/internal/platform/errors"
	filesvc "ffiassembler/internal/services/api/files/service"
)

// describe reads a file from disk, or from the blob store when target is timestamp/variant and fromStore is set
func (a *app) describe(ctx context.Context, target string, fromStore bool) (filesvc.Dump, error) {
	if !fromStore {
		b, err := os.ReadFile(target)
		if err != nil {
			return filesvc.Dump{}, perr.Wrapf(err, perr.ErrorCodeNotFound, "read %s", target)
		}
		d, err := filesvc.Describe(b)
		d.Key = target
		return d, err
	}
	ts, variant, ok := strings.Cut(target, "/")
	if !ok {
		return filesvc.Dump{}, perr.InvalidArgf("stored file %q must be timestamp/variant", target)
	}
	e, err := a.open(ctx)
	if err != nil {
		return filesvc.Dump{}, err
	}
	defer e.close()
	return filesvc.New(e.deps.Blobs).Headers(ctx, ts, variant)
}

func inspectCmd(a *app) *cobra.Command {
	var (
		unit      int
		fromStore bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <path | timestamp/variant>",
		Short: "Print the header cards of a FITS file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.describe(cmd.Context(), args[0], fromStore)
			if err != nil {
				return err
			}
			units := d.Units
			if unit >= 0 {
				if unit >= len(units) {
					return perr.WithField(perr.InvalidArgf("%s has %d units", d.Key, len(units)), "unit")
				}
				units = units[unit : unit+1]
			}
			return a.print(units, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Unit", "Key", "Value", "Comment"})
				for _, u := range units {
					for _, c := range u.Cards {
						tw.AppendRow(table.Row{u.Index, c.Key, fmt.Sprint(c.Value), c.Comment})
					}
					tw.AppendSeparator()
				}
			})
		},
	}
	cmd.Flags().IntVar(&unit, "unit", -1, "only print this unit; the primary header is 0")
	cmd.Flags().BoolVar(&fromStore, "blob", false, "read timestamp/variant from the blob store")
	return cmd
}

func verifyCmd(a *app) *cobra.Command {
	var fromStore bool
	cmd := &cobra.Command{
		Use:   "verify <path | timestamp/variant>",
		Short: "Verify CHECKSUM and DATASUM of every unit of a FITS file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.describe(cmd.Context(), args[0], fromStore)
			if err != nil {
				return err
			}
			failed := 0
			for _, u := range d.Units {
				if !u.OK {
					failed++
				}
			}
			if err := a.print(d.Units, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Unit", "EXTNAME", "CHECKSUM", "DATASUM", "Data bytes", "OK", "Error"})
				for _, u := range d.Units {
					tw.AppendRow(table.Row{u.Index, u.ExtName, u.Checksum, u.DataSum, u.DataLen, u.OK, u.Error})
				}
			}); err != nil {
				return err
			}
			if failed > 0 {
				return perr.Integrityf("%s: %d of %d units failed verification", d.Key, failed, len(d.Units))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStore, "blob", false, "read timestamp/variant from the blob store")
	return cmd
}
