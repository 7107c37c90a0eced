package classfile

import "testing"

func TestConstantPoolAddDedup(t *testing.T) {
	pool := NewConstantPool()

	a := pool.AddUtf8("java/lang/Object")
	b := pool.AddUtf8("java/lang/Object")
	if a != b {
		t.Fatalf("AddUtf8 did not dedup: %d != %d", a, b)
	}

	c1 := pool.AddClass("java/lang/Object")
	c2 := pool.AddClass("java/lang/Object")
	if c1 != c2 {
		t.Fatalf("AddClass did not dedup: %d != %d", c1, c2)
	}

	m1 := pool.AddMethodref("java/lang/Object", "<init>", "()V")
	m2 := pool.AddMethodref("java/lang/Object", "<init>", "()V")
	if m1 != m2 {
		t.Fatalf("AddMethodref did not dedup: %d != %d", m1, m2)
	}
}

func TestConstantPoolLongDoubleConsumeTwoSlots(t *testing.T) {
	pool := NewConstantPool()
	before := pool.Len()
	idx := pool.AddLong(123456789)
	after := pool.Len()
	if after-before != 2 {
		t.Fatalf("AddLong grew pool by %d slots, want 2", after-before)
	}
	entry, err := pool.Get(idx)
	if err != nil {
		t.Fatalf("Get(%d): %v", idx, err)
	}
	if l, ok := entry.(LongEntry); !ok || l.Value != 123456789 {
		t.Fatalf("Get(%d) = %#v, want LongEntry{123456789}", idx, entry)
	}
}

func TestConstantPoolGetInvalidIndex(t *testing.T) {
	pool := NewConstantPool()
	if _, err := pool.Get(0); err == nil {
		t.Fatal("Get(0) should fail: index 0 is reserved")
	}
	if _, err := pool.Get(99); err == nil {
		t.Fatal("Get(99) should fail: out of range")
	}
}

func TestConstantPoolClassNameAndMethodref(t *testing.T) {
	pool := NewConstantPool()
	pool.AddMethodref("java/lang/String", "length", "()I")

	classIdx := pool.AddClass("java/lang/String")
	name, err := pool.ClassName(classIdx)
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if name != "java/lang/String" {
		t.Fatalf("ClassName = %q", name)
	}

	mIdx := pool.AddMethodref("java/lang/String", "length", "()I")
	ref, err := pool.Methodref(mIdx)
	if err != nil {
		t.Fatalf("Methodref: %v", err)
	}
	if ref.ClassName != "java/lang/String" || ref.Name != "length" || ref.Descriptor != "()I" {
		t.Fatalf("Methodref = %#v", ref)
	}
}

func TestConstantPoolWrongTagKind(t *testing.T) {
	pool := NewConstantPool()
	idx := pool.AddUtf8("not a class")
	if _, err := pool.ClassName(idx); err == nil {
		t.Fatal("ClassName on a Utf8 index should fail")
	}
}
