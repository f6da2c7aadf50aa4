package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/engine"
	"github.com/bioimagesuiteweb/bisweb-sub000/internal/refengine"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

func (a *app) selftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Round-trip every object kind through an engine",
		Long: `Instantiates an engine, prints the codes it reports and passes one object
of every kind through a copy function, checking that each comes back unchanged.
Without --engine the built-in reference engine is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			wasm := refengine.Module()
			if path := a.v.GetString("engine"); path != "" {
				data, err := os.ReadFile(path) //nolint:gosec // G304: engine path is user supplied
				if err != nil {
					return fmt.Errorf("read engine: %w", err)
				}
				wasm = data
			}

			eng, err := engine.New(ctx, wasm, &engine.Config{
				EnableWASI:       a.v.GetBool("wasi"),
				MemoryLimitPages: a.v.GetUint32("memory-limit-pages"),
			})
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			reg := eng.Registry()
			for _, k := range protocol.Kinds {
				fmt.Fprintf(out, "magic %-15s %d\n", k, reg.Magic(k))
			}
			for _, et := range dtype.All {
				code, _ := reg.Types().Code(et)
				fmt.Fprintf(out, "type  %-15s %d\n", et, code)
			}
			fmt.Fprintln(out)

			fn := a.v.GetString("function")
			ents := append(sampleEntities(), protocol.NewCollection(sampleEntities()...))
			failed := 0
			for _, ent := range ents {
				got, err := eng.Run(ctx, fn, map[string]any{"selftest": true}, a.v.GetBool("debug"), ent)
				switch {
				case err != nil:
					failed++
					fmt.Fprintf(out, "FAIL %-15s %v\n", ent.Kind(), err)
				case !protocol.Equal(ent, got):
					failed++
					fmt.Fprintf(out, "FAIL %-15s result differs\n", ent.Kind())
				default:
					fmt.Fprintf(out, "ok   %s\n", ent.Kind())
				}
			}
			a.logger.Info("selftest finished", zap.Int("objects", len(ents)), zap.Int("failed", failed))

			if a.v.GetBool("metrics") {
				fmt.Fprintln(out)
				eng.WriteMetrics(out)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d round trips failed", failed, len(ents))
			}
			return nil
		},
	}
	cmd.Flags().String("engine", "", wrapString("Engine module to load instead of the reference engine"))
	cmd.Flags().String("function", "duplicateObject", wrapString("Exported copy function taking (object, params, debug)"))
	cmd.Flags().Bool("wasi", true, wrapString("Provide WASI preview1 imports"))
	cmd.Flags().Bool("debug", false, wrapString("Pass the debug flag to the engine"))
	cmd.Flags().Uint32("memory-limit-pages", 0, wrapString("Engine memory limit in 64KiB pages (0 for the default)"))
	cmd.Flags().Bool("metrics", false, wrapString("Print engine metrics in Prometheus text format"))
	return cmd
}
