package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ffiassembler/internal/platform/store/migrate"
	calibmod "ffiassembler/internal/services/calibration/module"
	calibrepo "ffiassembler/internal/services/calibration/repo"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply relational and ClickHouse schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer e.close()
			applied, err := migrate.Apply(ctx, e.deps.SQL, e.store.Driver, nil)
			if err != nil {
				return err
			}
			var chApplied []string
			if e.deps.CH != nil {
				if chApplied, err = migrate.ApplyCH(ctx, e.deps.CH); err != nil {
					return err
				}
			}
			out := map[string][]string{e.store.Driver: applied, "clickhouse": chApplied}
			return a.print(out, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Backend", "Migration"})
				for _, m := range applied {
					tw.AppendRow(table.Row{e.store.Driver, m})
				}
				for _, m := range chApplied {
					tw.AppendRow(table.Row{"clickhouse", m})
				}
				if len(applied)+len(chApplied) == 0 {
					tw.AppendRow(table.Row{e.store.Driver, "up to date"})
				}
			})
		},
	}
}

func calibrationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibration",
		Short: "Manage calibration records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <snapshot.yaml>",
		Short: "Load a calibration snapshot into the relational store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := calibrepo.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			e, err := a.ready(ctx)
			if err != nil {
				return err
			}
			defer e.close()
			calib, err := calibmod.New(e.deps, calibmod.Options{Source: calibmod.SourceSQL})
			if err != nil {
				return err
			}
			counts, err := calib.Importer().Import(ctx, snap)
			if err != nil {
				return err
			}
			return a.print(counts, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Table", "Records"})
				tw.AppendRows([]table.Row{
					{"config maps", counts.ConfigMaps},
					{"gains", counts.Gains},
					{"read noise", counts.ReadNoise},
					{"mean black", counts.MeanBlack},
					{"roll times", counts.RollTimes},
					{"wcs", counts.WCS},
					{"barycentric", counts.Barycentric},
				})
			})
		},
	})
	return cmd
}
