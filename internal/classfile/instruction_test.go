package classfile

import "testing"

func TestDecodeInstructionsSimpleArithmetic(t *testing.T) {
	code := []byte{byte(OpIconst1), byte(OpIconst2), byte(OpIadd), byte(OpIreturn)}
	instructions, err := DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instructions) != 4 {
		t.Fatalf("len = %d, want 4", len(instructions))
	}
	for i, want := range []byte{OpIconst1, OpIconst2, OpIadd, OpIreturn} {
		if instructions[i].Opcode != want {
			t.Fatalf("instructions[%d].Opcode = %#x, want %#x", i, instructions[i].Opcode, want)
		}
		if instructions[i].Length != 1 {
			t.Fatalf("instructions[%d].Length = %d, want 1", i, instructions[i].Length)
		}
	}
}

func TestDecodeInstructionsBranchTarget(t *testing.T) {
	// goto +5 from offset 0 -> absolute target 5
	code := []byte{byte(OpGoto), 0x00, 0x05, byte(OpNop), byte(OpNop), byte(OpReturn)}
	instructions, err := DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if instructions[0].Target != 5 {
		t.Fatalf("goto target = %d, want 5", instructions[0].Target)
	}
}

func TestDecodeInstructionsIinc(t *testing.T) {
	code := []byte{byte(OpIinc), 0x01, 0xFF} // iinc local#1 by -1
	instructions, err := DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if instructions[0].Index != 1 {
		t.Fatalf("Index = %d, want 1", instructions[0].Index)
	}
	if instructions[0].Const != -1 {
		t.Fatalf("Const = %d, want -1", instructions[0].Const)
	}
}

func TestDecodeInstructionsWideIload(t *testing.T) {
	// wide iload #300
	code := []byte{byte(OpWide), byte(OpIload), 0x01, 0x2C}
	instructions, err := DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instructions) != 1 {
		t.Fatalf("len = %d, want 1", len(instructions))
	}
	if !instructions[0].Wide {
		t.Fatal("expected Wide = true")
	}
	if instructions[0].Index != 300 {
		t.Fatalf("Index = %d, want 300", instructions[0].Index)
	}
	if instructions[0].Length != 4 {
		t.Fatalf("Length = %d, want 4", instructions[0].Length)
	}
}

func TestDecodeInstructionsTableswitchPadding(t *testing.T) {
	// tableswitch at offset 0; padding consumes 3 bytes to reach the next
	// 4-byte boundary (offset 4).
	code := []byte{
		byte(OpTableswitch), // offset 0
		0x00, 0x00, 0x00, // padding to offset 4
		0x00, 0x00, 0x00, 0x0A, // default -> +10
		0x00, 0x00, 0x00, 0x00, // low = 0
		0x00, 0x00, 0x00, 0x01, // high = 1
		0x00, 0x00, 0x00, 0x14, // offsets[0] -> +20
		0x00, 0x00, 0x00, 0x18, // offsets[1] -> +24
	}
	instructions, err := DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	ts := instructions[0]
	if ts.Opcode != OpTableswitch {
		t.Fatalf("Opcode = %#x, want tableswitch", ts.Opcode)
	}
	if ts.Low != 0 || ts.High != 1 {
		t.Fatalf("low/high = %d/%d, want 0/1", ts.Low, ts.High)
	}
	if len(ts.JumpTargets) != 2 {
		t.Fatalf("len(JumpTargets) = %d, want 2", len(ts.JumpTargets))
	}
}

func TestDecodeInstructionsLookupswitch(t *testing.T) {
	code := []byte{
		byte(OpLookupswitch), // offset 0
		0x00, 0x00, 0x00, // padding to offset 4
		0x00, 0x00, 0x00, 0x09, // default -> +9
		0x00, 0x00, 0x00, 0x01, // npairs = 1
		0x00, 0x00, 0x00, 0x2A, // key = 42
		0x00, 0x00, 0x00, 0x10, // target -> +16
	}
	instructions, err := DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	ls := instructions[0]
	if len(ls.MatchKeys) != 1 || ls.MatchKeys[0] != 42 {
		t.Fatalf("MatchKeys = %v, want [42]", ls.MatchKeys)
	}
	if ls.JumpTargets[0] != 16 {
		t.Fatalf("JumpTargets[0] = %d, want 16", ls.JumpTargets[0])
	}
	if ls.DefaultTarget != 9 {
		t.Fatalf("DefaultTarget = %d, want 9", ls.DefaultTarget)
	}
}

func TestMnemonic(t *testing.T) {
	ins := Instruction{Opcode: OpIadd}
	if ins.Mnemonic() != "iadd" {
		t.Fatalf("Mnemonic() = %q, want iadd", ins.Mnemonic())
	}
}

func TestDecodeInstructionsTruncated(t *testing.T) {
	code := []byte{byte(OpSipush), 0x00} // missing second operand byte
	if _, err := DecodeInstructions(code); err == nil {
		t.Fatal("expected truncated-stream error")
	}
}
