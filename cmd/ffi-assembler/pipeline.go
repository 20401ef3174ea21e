package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/headers"
	"ffiassembler/internal/core/product"
	"ffiassembler/internal/core/version"
	perr "ffiassembler/internal/platform/errors"
	asmdom "ffiassembler/internal/services/assembly/domain"
	fragdom "ffiassembler/internal/services/fragments/domain"
	pipemod "ffiassembler/internal/services/pipeline/module"
	piperepo "ffiassembler/internal/services/pipeline/repo"
)

func runCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <timestamp>",
		Short: "Generate fragments and assemble every requested variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPipeline(cmd.Context(), func(ctx context.Context, _ env, p *pipemod.Module) error {
				run, err := p.Runner().Run(ctx, p.Options().Request(args[0]))
				if err != nil {
					return err
				}
				return a.print(run, func(tw table.Writer) {
					tw.SetTitle(fmt.Sprintf("run %s %s", run.ID, run.Status))
					tw.AppendHeader(table.Row{"Variant", "Key", "Bytes", "Generated", "Reused", "Skipped", "File"})
					for _, f := range run.Files {
						file := "written"
						if f.FileReuse {
							file = "reused"
						}
						tw.AppendRow(table.Row{f.Variant, f.Key, f.Bytes, f.Generated, f.Reused, channels(f.Skipped), file})
					}
				})
			})
		},
	}
}

func generateCmd(a *app) *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "generate <timestamp>",
		Short: "Generate the channel fragments of one variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := product.ParseVariant(variant)
			if err != nil {
				return err
			}
			return a.withPipeline(cmd.Context(), func(ctx context.Context, _ env, p *pipemod.Module) error {
				opts := p.Options()
				var chans []focalplane.Channel
				if opts.Channels != "" {
					if chans, err = focalplane.ParseList(opts.Channels); err != nil {
						return perr.WithField(err, "channels")
					}
				}
				res, err := p.Generator().Generate(ctx, fragdom.Job{
					RunID:        uuid.NewString(),
					Timestamp:    args[0],
					Variant:      v,
					Channels:     chans,
					AllowMissing: opts.AllowMissing,
					Generated:    time.Now().UTC().Truncate(time.Second),
				})
				if err != nil {
					return err
				}
				return a.print(res, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"Channel", "Status", "Bytes", "Checksum", "Reason"})
					for _, o := range res.Outcomes {
						tw.AppendRow(table.Row{o.Channel, o.Status, o.Bytes, o.Checksum, o.Reason})
					}
					tw.AppendFooter(table.Row{"", fmt.Sprintf("%d generated", res.Count(fragdom.StatusGenerated)), "", fmt.Sprintf("%d reused", res.Count(fragdom.StatusReused)), fmt.Sprintf("%d skipped", res.Count(fragdom.StatusSkipped))})
				})
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "cal", "variant to generate: cal or uncert")
	return cmd
}

func assembleCmd(a *app) *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "assemble <timestamp>",
		Short: "Assemble existing fragments of one variant into a full-frame image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := product.ParseVariant(variant)
			if err != nil {
				return err
			}
			return a.withPipeline(cmd.Context(), func(ctx context.Context, _ env, p *pipemod.Module) error {
				opts := p.Options()
				mission, err := product.ParseMission(opts.Mission)
				if err != nil {
					return err
				}
				res, err := p.Assembler().Assemble(ctx, asmdom.Job{
					RunID:        uuid.NewString(),
					Timestamp:    args[0],
					Mission:      mission,
					Variant:      v,
					DataRelease:  opts.DataRelease,
					AllowMissing: opts.AllowMissing,
					Generated:    time.Now().UTC().Truncate(time.Second),
					Software: headers.Software{
						Creator:     version.Creator(),
						ProcVer:     version.Info().Version,
						FileVersion: opts.FileVersion,
					},
				})
				if err != nil {
					return err
				}
				return a.print(res, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"Key", "Bytes", "Representative", "Channels", "Skipped", "Reused"})
					tw.AppendRow(table.Row{res.Key, res.Bytes, res.Representative, len(res.Channels), channels(res.Skipped), res.Reused})
				})
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "cal", "variant to assemble: cal or uncert")
	return cmd
}

func runsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs <timestamp>",
		Short: "List the recorded runs of a timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := a.ready(ctx)
			if err != nil {
				return err
			}
			defer e.close()
			runs, err := piperepo.NewSQL().Bind(e.deps.SQL).Runs(ctx, args[0])
			if err != nil {
				return err
			}
			return a.print(runs, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"ID", "Status", "Mission", "Variants", "Created", "Finished", "Error"})
				for _, r := range runs {
					finished := ""
					if r.FinishedAt != nil {
						finished = r.FinishedAt.Format(time.RFC3339)
					}
					vs := make([]string, len(r.Variants))
					for i, v := range r.Variants {
						vs[i] = string(v)
					}
					tw.AppendRow(table.Row{r.ID, r.Status, r.Mission, strings.Join(vs, ","), r.CreatedAt.Format(time.RFC3339), finished, r.Error})
				}
			})
		},
	}
}

func channels(cs []focalplane.Channel) string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return strings.Join(out, ",")
}
