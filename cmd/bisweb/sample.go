package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bioimagesuiteweb/bisweb-sub000/internal/refengine"
	"github.com/bioimagesuiteweb/bisweb-sub000/ndarray"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
	"github.com/bioimagesuiteweb/bisweb-sub000/snapshot"
)

func (a *app) sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample FILE",
		Short: "Write a snapshot holding one object of every kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := refengine.Registry()
			if err != nil {
				return err
			}
			opts := snapshot.Options{
				Compress:          a.v.GetBool("compress"),
				ForceLargeObjects: a.v.GetBool("large"),
			}
			path := args[0]
			if err := snapshot.WriteFile(path, reg, protocol.NewCollection(sampleEntities()...), opts); err != nil {
				return err
			}
			st, err := os.Stat(path)
			if err != nil {
				return err
			}
			a.logger.Info("wrote snapshot",
				zap.String("path", path),
				zap.Int64("bytes", st.Size()),
				zap.Bool("compress", opts.Compress))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, st.Size())
			return nil
		},
	}
	cmd.Flags().Bool("compress", true, wrapString("Compress the payload with zstd"))
	cmd.Flags().Bool("large", false, wrapString("Write images and matrices with large-object headers"))
	return cmd
}

// sampleEntities returns one object of each non-collection kind.
func sampleEntities() []protocol.Entity {
	const nx, ny, nz = 16, 16, 4
	voxels := make([]float32, nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				dx, dy := float64(i-nx/2), float64(j-ny/2)
				voxels[(i*ny+j)*nz+k] = float32(100 * math.Exp(-(dx*dx+dy*dy)/18) / float64(k+1))
			}
		}
	}
	img := protocol.NewImage(ndarray.MustFromSlice(ndarray.Shape{nx, ny, nz}, voxels), [5]float32{0.9, 0.9, 2.5, 1, 1})

	mat := protocol.NewMatrix(ndarray.MustFromSlice(ndarray.Shape{3, 4}, []float64{
		1, 0, 0, 12.5,
		0, 0.98, -0.17, -4,
		0, 0.17, 0.98, 7.25,
	}))
	vec := protocol.NewVector(ndarray.MustFromSlice(ndarray.Shape{6}, []int32{0, 1, 1, 2, 3, 5}))

	grid := protocol.NewGridTransform([3]int{4, 4, 4}, [3]float32{20, 20, 20}, [3]float32{-30, -30, -30}, true)
	for k := 0; k < 4; k++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				s := float32(math.Sin(float64(i+j+k) / 2))
				grid.SetDisplacement(i, j, k, [3]float32{s, -s / 2, s / 4})
			}
		}
	}

	linear := protocol.Identity()
	linear[0][3], linear[1][3], linear[2][3] = 2, -1.5, 0.5
	combo := &protocol.ComboTransform{Linear: linear, Grids: []*protocol.GridTransform{grid, grid}}

	return []protocol.Entity{img, mat, vec, grid, combo}
}
