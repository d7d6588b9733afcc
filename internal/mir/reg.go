// Package mir implements the AArch64-targeting machine IR:
// physical/virtual registers with sub-register views, operand cells,
// per-function blocks and stack layout, and a textual GNU assembly writer.
package mir

import "fmt"

// RegClass tags whether a register lives in the general-purpose (X/W) or
// floating/vector (D/S) file.
type RegClass byte

const (
	RegClassInt RegClass = iota
	RegClassFloat
)

func (c RegClass) String() string {
	if c == RegClassFloat {
		return "float"
	}
	return "int"
}

// PhysReg packs an AArch64 physical register number (0-31) with its class
// into a single uint16.
type PhysReg uint16

func NewPhysReg(num uint8, class RegClass) PhysReg {
	r := PhysReg(num)
	if class == RegClassFloat {
		r |= 0x100
	}
	return r
}

func (r PhysReg) Num() uint8 { return uint8(r & 0xff) }
func (r PhysReg) Class() RegClass {
	if r&0x100 != 0 {
		return RegClassFloat
	}
	return RegClassInt
}

// Integer general-purpose registers. X8-X15 are reserved as the
// spill-everywhere pass's scratch window; X29/X30 are
// frame-pointer/link-register; X31 is SP/XZR depending on context.
const (
	RegXZR  = 31
	RegSP   = 31
	RegFP   = 29 // x29
	RegLR   = 30 // x30
	RegTmp0 = 8  // first reserved scratch register, X8/D8.
	RegTmp1 = 15 // last reserved scratch register, X15/D15.
)

// String renders a physical register in GNU AArch64 assembly syntax at a
// given sub-register width (32 or 64 bits for int, 32 or 64 for float).
func (r PhysReg) String() string {
	return r.StringAtWidth(64)
}

func (r PhysReg) StringAtWidth(bits uint8) string {
	n := r.Num()
	if r.Class() == RegClassFloat {
		if bits <= 32 {
			return fmt.Sprintf("s%d", n)
		}
		return fmt.Sprintf("d%d", n)
	}
	if n == RegSP {
		return "sp"
	}
	if bits <= 32 {
		return fmt.Sprintf("w%d", n)
	}
	return fmt.Sprintf("x%d", n)
}

// VReg is a virtual register: a dense index handed out during instruction
// selection, not yet assigned to a PhysReg. Negative/sentinel handling
// mirrors arena.Handle's "max value is null" convention. The class a vreg
// was allocated with (GPR or FPR file) is packed into its top bit, the way
// PhysReg packs RegClass into its own top bits: the spill-everywhere
// allocator needs to know which reserved-temp window
// (X8-X15 vs D8-D15) a spilled vreg reloads into, and nothing else about a
// vreg's identity depends on that bit, so no side-table is needed to carry
// it from selection through to regalloc.
type VReg uint32

const (
	vregClassBit          = VReg(1) << 31
	NullVReg         VReg = ^VReg(0)
)

func (v VReg) IsNull() bool { return v == NullVReg }

// Class reports the register file v was allocated in.
func (v VReg) Class() RegClass {
	if v&vregClassBit != 0 {
		return RegClassFloat
	}
	return RegClassInt
}

// Index returns v's dense per-function allocation index, stripped of the
// class bit (spills key their slot map by the full VReg value, not the
// index, but the textual writer and tests want the bare counter).
func (v VReg) Index() uint32 { return uint32(v &^ vregClassBit) }

// MakeVReg reconstructs a VReg from a dense index and class, the inverse of
// Index()/Class(). Used by passes that recover a vreg identity from a
// serialized form (e.g. a reload/spill instruction's annotation comment)
// rather than handing one out fresh via Module.NewVReg.
func MakeVReg(index uint32, class RegClass) VReg {
	v := VReg(index)
	if class == RegClassFloat {
		v |= vregClassBit
	}
	return v
}

// SubRegIndex packs a sub-register view as log2(bit-width) in the low
// nibble and a byte offset in the high bits, the way a 32-bit W-view
// selects the low half of a 64-bit X register or an S-view of a D
// register.
type SubRegIndex uint8

func NewSubRegIndex(log2Bits uint8, byteOffset uint8) SubRegIndex {
	return SubRegIndex(log2Bits&0xf | byteOffset<<4)
}

func (s SubRegIndex) Log2Bits() uint8    { return uint8(s) & 0xf }
func (s SubRegIndex) Bits() uint32       { return 1 << s.Log2Bits() }
func (s SubRegIndex) ByteOffset() uint8  { return uint8(s) >> 4 }

// Full64 and Full32 are the common identity sub-register views.
var (
	Full64 = NewSubRegIndex(6, 0) // 1<<6 == 64 bits
	Full32 = NewSubRegIndex(5, 0) // 1<<5 == 32 bits
)

// UseFlags tags how an operand slot references a register, mirroring LLVM
// MachineOperand's use/def/kill/implicit-def flag bits.
type UseFlags uint8

const (
	UseFlagUse UseFlags = 1 << iota
	UseFlagDef
	UseFlagImplicitDef
	UseFlagKill
)

func (f UseFlags) Has(bit UseFlags) bool { return f&bit != 0 }
