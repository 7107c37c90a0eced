package jit

import (
	"math"
	"testing"

	"github.com/ristrettovm/ristretto/internal/classfile"
	"github.com/ristrettovm/ristretto/internal/vm"
)

// method builds a minimal MethodInfo wrapping code, enough for Compile
// (which only reads Code.Code and Code.MaxLocals).
func method(maxLocals uint16, code []byte) *classfile.MethodInfo {
	return &classfile.MethodInfo{
		Code: &classfile.CodeAttribute{MaxLocals: maxLocals, Code: code},
	}
}

// The five numeric scenarios below are exactly spec §8's "Interpreter
// scenarios (concrete)" 1, 2 (minus the array/locals packaging), 3, 4 and 6
// — the JIT lowers the same modeled opcode subset, so it must agree.

func TestIconstAddReturnsThree(t *testing.T) {
	code := []byte{byte(classfile.OpIconst1), byte(classfile.OpIconst2), byte(classfile.OpIadd), byte(classfile.OpIreturn)}
	p, err := Compile(method(0, code))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := p.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind != vm.KindInt32 || result.I32 != 3 {
		t.Fatalf("result = %+v, want Int32Value(3)", result)
	}
}

func TestIdivByLocalsDividesAndThrowsOnZero(t *testing.T) {
	code := []byte{byte(classfile.OpIload0), byte(classfile.OpIload1), byte(classfile.OpIdiv), byte(classfile.OpIreturn)}
	p, err := Compile(method(2, code))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	result, err := p.Run([]vm.Value{vm.Int32Value(6), vm.Int32Value(3)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I32 != 2 {
		t.Fatalf("6/3 = %d, want 2", result.I32)
	}

	_, err = p.Run([]vm.Value{vm.Int32Value(5), vm.Int32Value(0)})
	if err == nil {
		t.Fatal("idiv by zero should throw ArithmeticException, not fault")
	}
	th, ok := err.(*vm.Throwable)
	if !ok || th.ClassName != "java/lang/ArithmeticException" {
		t.Fatalf("err = %v, want ArithmeticException", err)
	}
}

func TestLconstSubReturnsZero(t *testing.T) {
	code := []byte{byte(classfile.OpLconst1), byte(classfile.OpLconst1), byte(classfile.OpLsub), byte(classfile.OpLreturn)}
	p, err := Compile(method(0, code))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := p.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind != vm.KindInt64 || result.I64 != 0 {
		t.Fatalf("result = %+v, want Int64Value(0)", result)
	}
}

func TestDconstDcmplPushesZero(t *testing.T) {
	code := []byte{byte(classfile.OpDconst1), byte(classfile.OpDconst1), byte(classfile.OpDcmpl), byte(classfile.OpIreturn)}
	p, err := Compile(method(0, code))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := p.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I32 != 0 {
		t.Fatalf("dcmpl(1,1) = %d, want 0", result.I32)
	}
}

func TestDcmplAndDcmpgDisagreeOnNaN(t *testing.T) {
	dcmplCode := []byte{byte(classfile.OpDconst1), byte(classfile.OpDload0), byte(classfile.OpDcmpl), byte(classfile.OpIreturn)}
	dcmpgCode := []byte{byte(classfile.OpDconst1), byte(classfile.OpDload0), byte(classfile.OpDcmpg), byte(classfile.OpIreturn)}

	pl, err := Compile(method(2, dcmplCode))
	if err != nil {
		t.Fatalf("Compile dcmpl: %v", err)
	}
	pg, err := Compile(method(2, dcmpgCode))
	if err != nil {
		t.Fatalf("Compile dcmpg: %v", err)
	}

	nan := vm.Float64Value(math.NaN())
	resultL, err := pl.Run([]vm.Value{nan})
	if err != nil {
		t.Fatalf("Run dcmpl: %v", err)
	}
	if resultL.I32 != -1 {
		t.Fatalf("dcmpl with NaN = %d, want -1", resultL.I32)
	}
	resultG, err := pg.Run([]vm.Value{nan})
	if err != nil {
		t.Fatalf("Run dcmpg: %v", err)
	}
	if resultG.I32 != 1 {
		t.Fatalf("dcmpg with NaN = %d, want 1", resultG.I32)
	}
}

func TestIincThenLoadReturnsIncrementedLocal(t *testing.T) {
	code := []byte{byte(classfile.OpIinc), 0x00, 0x01, byte(classfile.OpIload0), byte(classfile.OpIreturn)}
	p, err := Compile(method(1, code))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := p.Run([]vm.Value{vm.Int32Value(41)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I32 != 42 {
		t.Fatalf("iinc(41, +1) = %d, want 42", result.I32)
	}
}

func TestCompileRejectsControlFlow(t *testing.T) {
	code := []byte{byte(classfile.OpGoto), 0x00, 0x03, byte(classfile.OpIconst0), byte(classfile.OpIreturn)}
	if _, err := Compile(method(0, code)); err == nil {
		t.Fatal("Compile should reject goto: branches are outside the modeled numeric subset")
	} else if _, ok := err.(*UnsupportedOpcodeError); !ok {
		t.Fatalf("err = %v (%T), want *UnsupportedOpcodeError", err, err)
	}
}

func TestLocalTypeMismatchOnCrossKindReuse(t *testing.T) {
	// store an int into local 0, then try to load it as a long.
	code := []byte{byte(classfile.OpIconst0), byte(classfile.OpIstore0), byte(classfile.OpLload0), byte(classfile.OpLreturn)}
	p, err := Compile(method(2, code))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := p.Run(nil); err == nil {
		t.Fatal("loading an int-typed local as a long should fail with LocalTypeMismatch")
	} else if _, ok := err.(*LocalTypeMismatch); !ok {
		t.Fatalf("err = %v (%T), want *LocalTypeMismatch", err, err)
	}
}
