package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/bioimagesuiteweb/bisweb-sub000/ndarray"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// previewValues is how many leading values a node's detail lists.
const previewValues = 8

type treeNode struct {
	label    string
	detail   []string
	size     int
	children []*treeNode
	expanded bool
}

// describe builds the display tree for ent. Sizes are the encoded sizes
// under enc.
func describe(enc *protocol.Encoder, name string, ent protocol.Entity) *treeNode {
	n := &treeNode{expanded: true}
	if size, err := enc.EncodedSize(ent); err == nil {
		n.size = size
	}

	switch e := ent.(type) {
	case *protocol.Vector:
		n.label = fmt.Sprintf("Vector %s[%d]", e.Data.DType(), e.Data.NumElements())
		n.detail = arrayDetail(e.Data)
	case *protocol.Matrix:
		shape := e.Data.Shape()
		n.label = fmt.Sprintf("Matrix %s[%dx%d]", e.Data.DType(), shape[0], shape[1])
		n.detail = arrayDetail(e.Data)
	case *protocol.Image:
		n.label = fmt.Sprintf("Image %s%v", e.Data.DType(), []int(e.Data.Shape()))
		n.detail = append([]string{fmt.Sprintf("spacing %v", e.Spacing)}, arrayDetail(e.Data)...)
	case *protocol.GridTransform:
		n.label = fmt.Sprintf("GridTransform %dx%dx%d", e.Dims[0], e.Dims[1], e.Dims[2])
		n.detail = gridDetail(e)
	case *protocol.ComboTransform:
		n.label = fmt.Sprintf("ComboTransform (%d grids)", len(e.Grids))
		n.children = append(n.children, linearNode(enc, e.Linear))
		for i, g := range e.Grids {
			n.children = append(n.children, describe(enc, fmt.Sprintf("grid[%d]", i), g))
		}
	case *protocol.Collection:
		n.label = fmt.Sprintf("Collection (%d items)", len(e.Items))
		for i, item := range e.Items {
			n.children = append(n.children, describe(enc, fmt.Sprintf("item[%d]", i), item))
		}
	default:
		n.label = fmt.Sprintf("%T", ent)
	}

	if name != "" {
		n.label = name + ": " + n.label
	}
	return n
}

func linearNode(enc *protocol.Encoder, l protocol.LinearTransform) *treeNode {
	n := &treeNode{label: "linear: LinearTransform 4x4", expanded: true}
	if size, err := enc.EncodedSize(l.Matrix()); err == nil {
		n.size = size
	}
	for _, row := range l {
		n.detail = append(n.detail, fmt.Sprintf("%8.3f %8.3f %8.3f %8.3f", row[0], row[1], row[2], row[3]))
	}
	return n
}

func arrayDetail(a *ndarray.Array) []string {
	vals := a.Float64s()
	if len(vals) == 0 {
		return []string{"empty"}
	}
	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	preview := vals
	if len(preview) > previewValues {
		preview = preview[:previewValues]
	}
	return []string{
		fmt.Sprintf("%d values, %d bytes", len(vals), a.ByteSize()),
		fmt.Sprintf("min %g max %g mean %g", lo, hi, sum/float64(len(vals))),
		fmt.Sprintf("first %v", preview),
	}
}

func gridDetail(g *protocol.GridTransform) []string {
	interp := "linear"
	if g.BSpline {
		interp = "bspline"
	}
	var peak float64
	for p := 0; p < g.NumControlPoints(); p++ {
		var sq float64
		for c := 0; c < 3; c++ {
			d := float64(g.Displacements[c*g.NumControlPoints()+p])
			sq += d * d
		}
		peak = math.Max(peak, math.Sqrt(sq))
	}
	return []string{
		fmt.Sprintf("spacing %v origin %v", g.Spacing, g.Origin),
		fmt.Sprintf("%d control points, %s interpolation", g.NumControlPoints(), interp),
		fmt.Sprintf("largest displacement %.4g", peak),
	}
}

// printTree writes n and its descendants, one line per node.
func printTree(w io.Writer, n *treeNode, verbose bool) {
	var walk func(n *treeNode, depth int)
	walk = func(n *treeNode, depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(w, "%s%s  (%d bytes)\n", indent, n.label, n.size)
		if verbose {
			for _, line := range n.detail {
				fmt.Fprintf(w, "%s    %s\n", indent, line)
			}
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

type treeRow struct {
	node  *treeNode
	depth int
}

// visibleRows flattens the expanded part of the tree.
func visibleRows(n *treeNode) []treeRow {
	var rows []treeRow
	var walk func(n *treeNode, depth int)
	walk = func(n *treeNode, depth int) {
		rows = append(rows, treeRow{node: n, depth: depth})
		if !n.expanded {
			return
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
	return rows
}
