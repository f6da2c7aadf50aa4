package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// Exported getter names. Engines expose one per entity kind and element type.
var (
	magicGetters = map[protocol.Kind]string{
		protocol.KindVector:         "getVectorMagicCode",
		protocol.KindMatrix:         "getMatrixMagicCode",
		protocol.KindImage:          "getImageMagicCode",
		protocol.KindGridTransform:  "getGridTransformMagicCode",
		protocol.KindComboTransform: "getComboTransformMagicCode",
		protocol.KindCollection:     "getCollectionMagicCode",
	}
	typeGetters = map[dtype.ElementType]string{
		dtype.Uint8:   "getUint8TypeCode",
		dtype.Int8:    "getInt8TypeCode",
		dtype.Int16:   "getInt16TypeCode",
		dtype.Uint16:  "getUint16TypeCode",
		dtype.Int32:   "getInt32TypeCode",
		dtype.Uint32:  "getUint32TypeCode",
		dtype.Float32: "getFloat32TypeCode",
		dtype.Float64: "getFloat64TypeCode",
	}
)

// queryRegistry asks the engine for its magic and type codes. Called once
// during New.
func (e *Engine) queryRegistry(ctx context.Context) (*protocol.Registry, error) {
	var codes protocol.MagicCodes
	for _, k := range protocol.Kinds {
		v, err := e.getCode(ctx, magicGetters[k])
		if err != nil {
			return nil, err
		}
		switch k {
		case protocol.KindVector:
			codes.Vector = v
		case protocol.KindMatrix:
			codes.Matrix = v
		case protocol.KindImage:
			codes.Image = v
		case protocol.KindGridTransform:
			codes.GridTransform = v
		case protocol.KindComboTransform:
			codes.ComboTransform = v
		case protocol.KindCollection:
			codes.Collection = v
		}
	}

	types := make(map[dtype.ElementType]int32, len(dtype.All))
	for _, et := range dtype.All {
		v, err := e.getCode(ctx, typeGetters[et])
		if err != nil {
			return nil, err
		}
		types[et] = v
	}
	table, err := dtype.NewTable(types)
	if err != nil {
		return nil, err
	}
	return protocol.NewRegistry(codes, table)
}

func (e *Engine) getCode(ctx context.Context, name string) (int32, error) {
	res, err := e.invoke(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(res) != 1 {
		return 0, errors.New(errors.PhaseRegistry, errors.KindCall).
			Detail("%s returned %d values, want 1", name, len(res)).
			Build()
	}
	return api.DecodeI32(res[0]), nil
}
