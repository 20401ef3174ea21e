// Command ffi-assembler generates channel fragments and assembles full-frame image files
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/modkit"
	"ffiassembler/internal/platform/config"
	"ffiassembler/internal/platform/logger"
	"ffiassembler/internal/platform/store"
	"ffiassembler/internal/platform/store/migrate"
	calibmod "ffiassembler/internal/services/calibration/module"
	pipemod "ffiassembler/internal/services/pipeline/module"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Init(logger.FromEnv())
	root := newRoot(viper.New(), os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Get().Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

// app carries the viper instance and output shared by every command
type app struct {
	v   *viper.Viper
	out io.Writer
}

// persistent flags and the FFI_* keys they override
var persistent = []struct {
	name, key, def, usage string
}{
	{"store-driver", "store.driver", "", "relational backend: pg or sqlite"},
	{"sqlite-path", "store.sqlite_path", "", "sqlite database file"},
	{"pg-url", "store.pg_url", "", "postgres connection url"},
	{"blob-root", "blob.root", "", "blob store root directory"},
	{"calibration-source", "calibration.source", "", "calibration source: sql or yaml"},
	{"calibration-snapshot", "calibration.snapshot", "", "calibration snapshot yaml for the yaml source"},
	{"variants", "pipeline.variants", "", "comma separated variants: cal,uncert"},
	{"mission", "pipeline.mission", "", "mission: kepler or k2"},
	{"data-release", "pipeline.data_release", "", "data release number"},
	{"allow-missing", "pipeline.allow_missing", "", "skip channels whose inputs or fragments are missing"},
	{"channels", "pipeline.channels", "", "comma separated module.output channels to generate"},
	{"workers", "fragments.workers", "", "fragment worker count"},
}

func newRoot(v *viper.Viper, out io.Writer) *cobra.Command {
	a := &app{v: v, out: out}
	var cfgFile string

	root := &cobra.Command{
		Use:           "ffi-assembler",
		Short:         "Kepler full-frame image assembly",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvPrefix("FFI")
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
			v.AutomaticEnv()
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", cfgFile, err)
				}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "yaml config file")
	root.PersistentFlags().Bool("json", false, "output JSON")
	_ = v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	for _, f := range persistent {
		root.PersistentFlags().String(f.name, f.def, f.usage)
		_ = v.BindPFlag(f.key, root.PersistentFlags().Lookup(f.name))
	}

	root.AddCommand(
		runCmd(a),
		generateCmd(a),
		assembleCmd(a),
		runsCmd(a),
		inspectCmd(a),
		verifyCmd(a),
		migrateCmd(a),
		calibrationCmd(a),
	)
	return root
}

// viperKey maps FFI_SECTION_REST to section.rest
func viperKey(env string) string {
	rest, ok := strings.CutPrefix(env, "FFI_")
	if !ok {
		return ""
	}
	section, key, ok := strings.Cut(strings.ToLower(rest), "_")
	if !ok {
		return section
	}
	return section + "." + key
}

// conf layers flags and the config file over the environment
func (a *app) conf() config.Conf {
	return config.FromLookup(func(k string) (string, bool) {
		if vk := viperKey(k); vk != "" && a.v.IsSet(vk) {
			if s := a.v.GetString(vk); s != "" {
				return s, true
			}
		}
		return os.LookupEnv(k)
	})
}

// env bundles what commands open
type env struct {
	deps  modkit.Deps
	store *store.Store
}

func (e env) close() {
	if err := e.store.Close(context.Background()); err != nil {
		e.deps.Log.Warn().Err(err).Msg("store close failed")
	}
}

// open connects the store and blob store
func (a *app) open(ctx context.Context) (env, error) {
	cfg := a.conf()
	log := logger.Get()
	st, err := store.Open(ctx, store.FromConfig(cfg), store.WithLogger(*log))
	if err != nil {
		return env{}, err
	}
	bc, err := blobstore.FromConfig(cfg)
	if err != nil {
		_ = st.Close(ctx)
		return env{}, err
	}
	fs, err := blobstore.OpenConfig(bc)
	if err != nil {
		_ = st.Close(ctx)
		return env{}, err
	}
	return env{
		deps:  modkit.Deps{Log: *log, Cfg: cfg, SQL: st.SQL, CH: st.CH, Blobs: fs},
		store: st,
	}, nil
}

// ready is open plus in-place migrations for a local sqlite file
func (a *app) ready(ctx context.Context) (env, error) {
	e, err := a.open(ctx)
	if err != nil {
		return env{}, err
	}
	if e.store.Driver == store.DriverSQLite {
		applied, err := migrate.Apply(ctx, e.deps.SQL, e.store.Driver, nil)
		if err != nil {
			e.close()
			return env{}, err
		}
		if len(applied) > 0 {
			e.deps.Log.Debug().Strs("migrations", applied).Msg("sqlite schema applied")
		}
	}
	return e, nil
}

// withPipeline opens everything a run needs and hands over the pipeline module
func (a *app) withPipeline(ctx context.Context, fn func(context.Context, env, *pipemod.Module) error) error {
	e, err := a.ready(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	calib, err := calibmod.New(e.deps, calibmod.Options{})
	if err != nil {
		return err
	}
	p, err := pipemod.New(e.deps, calib.Source())
	if err != nil {
		return err
	}
	return fn(ctx, e, p)
}

// print writes v as JSON with --json and as a table otherwise
func (a *app) print(v any, fill func(table.Writer)) error {
	if a.v.GetBool("json") {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(a.out)
	fill(tw)
	tw.Render()
	return nil
}
