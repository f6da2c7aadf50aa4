package wasmgen

const (
	opUnreachable byte = 0x00
	opIf          byte = 0x04
	opEnd         byte = 0x0B
	opCall        byte = 0x10
	opLocalGet    byte = 0x20
	opLocalSet    byte = 0x21
	opLocalTee    byte = 0x22
	opGlobalGet   byte = 0x23
	opGlobalSet   byte = 0x24
	opI32Load     byte = 0x28
	opI32Store    byte = 0x36
	opMemorySize  byte = 0x3F
	opMemoryGrow  byte = 0x40
	opI32Const    byte = 0x41
	opI32Eq       byte = 0x46
	opI32GtU      byte = 0x4B
	opI32Add      byte = 0x6A
	opI32Sub      byte = 0x6B
	opI32And      byte = 0x71
	opI32Shl      byte = 0x74
	opI32ShrU     byte = 0x76
	opPrefixFC    byte = 0xFC
	opMemoryCopy  uint32 = 10

	blockVoid byte = 0x40
)

// Code assembles a function body one instruction at a time.
type Code struct {
	w writer
}

// NewCode starts an empty body.
func NewCode() *Code {
	return &Code{}
}

// Bytes returns the assembled instructions.
func (c *Code) Bytes() []byte {
	return c.w.bytes()
}

func (c *Code) op(b byte) *Code {
	c.w.byte(b)
	return c
}

func (c *Code) opIdx(b byte, idx uint32) *Code {
	c.w.byte(b)
	c.w.u32(idx)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.w.byte(opI32Const)
	c.w.s32(v)
	return c
}

func (c *Code) LocalGet(i uint32) *Code  { return c.opIdx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code  { return c.opIdx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code  { return c.opIdx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.opIdx(opGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.opIdx(opGlobalSet, i) }
func (c *Code) Call(fn uint32) *Code     { return c.opIdx(opCall, fn) }

// I32Load loads from the address on the stack plus offset, 4-byte aligned.
func (c *Code) I32Load(offset uint32) *Code {
	c.w.byte(opI32Load)
	c.w.u32(2)
	c.w.u32(offset)
	return c
}

// I32Store stores to the address on the stack plus offset, 4-byte aligned.
func (c *Code) I32Store(offset uint32) *Code {
	c.w.byte(opI32Store)
	c.w.u32(2)
	c.w.u32(offset)
	return c
}

func (c *Code) MemorySize() *Code { return c.opIdx(opMemorySize, 0) }
func (c *Code) MemoryGrow() *Code { return c.opIdx(opMemoryGrow, 0) }

// MemoryCopy copies n bytes from src to dst, both taken from the stack in the
// order dst, src, n.
func (c *Code) MemoryCopy() *Code {
	c.w.byte(opPrefixFC)
	c.w.u32(opMemoryCopy)
	c.w.byte(0)
	c.w.byte(0)
	return c
}

func (c *Code) Add() *Code         { return c.op(opI32Add) }
func (c *Code) Sub() *Code         { return c.op(opI32Sub) }
func (c *Code) And() *Code         { return c.op(opI32And) }
func (c *Code) Shl() *Code         { return c.op(opI32Shl) }
func (c *Code) ShrU() *Code        { return c.op(opI32ShrU) }
func (c *Code) Eq() *Code          { return c.op(opI32Eq) }
func (c *Code) GtU() *Code         { return c.op(opI32GtU) }
func (c *Code) Unreachable() *Code { return c.op(opUnreachable) }

// If opens a block with no result that runs when the i32 on the stack is
// non-zero. Close it with End.
func (c *Code) If() *Code {
	c.w.byte(opIf)
	c.w.byte(blockVoid)
	return c
}

func (c *Code) End() *Code { return c.op(opEnd) }
