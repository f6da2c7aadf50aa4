package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
	"github.com/bioimagesuiteweb/bisweb-sub000/snapshot"
)

func (a *app) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the object tree stored in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			reg, ent, err := snapshot.Open(path)
			if err != nil {
				return err
			}
			a.logger.Debug("opened snapshot", zap.String("path", path), zap.Stringer("kind", ent.Kind()))

			root := describe(protocol.NewEncoder(reg, protocol.EncodeOptions{}), "", ent)
			if a.v.GetBool("interactive") && isTerminal(os.Stdout) {
				return runInteractive(path, root)
			}

			out := cmd.OutOrStdout()
			codes := reg.Codes()
			fmt.Fprintf(out, "%s\n", path)
			fmt.Fprintf(out, "magic %d/%d/%d/%d/%d/%d types %s\n\n",
				codes.Vector, codes.Matrix, codes.Image, codes.GridTransform, codes.ComboTransform, codes.Collection,
				reg.Types())
			printTree(out, root, a.v.GetBool("verbose"))
			return nil
		},
	}
	cmd.Flags().BoolP("interactive", "i", false, wrapString("Browse the tree in a terminal UI"))
	cmd.Flags().BoolP("verbose", "v", false, wrapString("Print value statistics under each node"))
	return cmd
}
