package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ristrettovm/ristretto/internal/classfile"
)

func newDisasmCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <class>",
		Short: "List a class's constant pool and decoded instructions per method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disasmClass(cfg, className(args[0]))
		},
	}
}

func disasmClass(cfg *config, target string) error {
	log := cfg.logger()

	dl, err := cfg.buildClassLoader(log)
	if err != nil {
		return err
	}
	cf, err := dl.ReadClass(target)
	if err != nil {
		return fail("reading %s: %w", target, err)
	}
	name, err := cf.ClassName()
	if err != nil {
		return fail("resolving class name: %w", err)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s  (class file version %d.%d)", name, cf.Version.Major(), cf.Version.Minor())))
	fmt.Println(headerStyle.Render("Constant pool"))
	for i := uint16(1); i < uint16(cf.ConstantPool.Len()); i++ {
		entry, err := cf.ConstantPool.Get(i)
		if err != nil {
			continue // index 0 or an unused wide-entry second slot
		}
		fmt.Printf("  #%-4d %s\n", i, describeEntry(cf, entry))
	}

	for i := range cf.Methods {
		m := &cf.Methods[i]
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s%s", m.Name, m.Descriptor)))
		if m.Code == nil {
			fmt.Println("  (native or abstract: no Code attribute)")
			continue
		}
		instrs, err := classfile.DecodeInstructions(m.Code.Code)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("  decode error: %v", err)))
			continue
		}
		for _, ins := range instrs {
			fmt.Printf("  %4d: %s\n", ins.Offset, ins.String())
		}
	}
	return nil
}

// describeEntry renders one constant pool entry the way a disassembler
// listing traditionally does: the entry's own fields plus, for anything
// that references a Utf8/Class/NameAndType entry, the resolved text.
func describeEntry(cf *classfile.ClassFile, e classfile.Entry) string {
	pool := cf.ConstantPool
	switch v := e.(type) {
	case classfile.Utf8Entry:
		return fmt.Sprintf("Utf8              %q", v.Value)
	case classfile.IntegerEntry:
		return fmt.Sprintf("Integer           %d", v.Value)
	case classfile.FloatEntry:
		return fmt.Sprintf("Float             %g", v.Value)
	case classfile.LongEntry:
		return fmt.Sprintf("Long              %d", v.Value)
	case classfile.DoubleEntry:
		return fmt.Sprintf("Double            %g", v.Value)
	case classfile.ClassEntry:
		name, _ := pool.Utf8(v.NameIndex)
		return fmt.Sprintf("Class             #%d  // %s", v.NameIndex, name)
	case classfile.StringEntry:
		s, _ := pool.Utf8(v.StringIndex)
		return fmt.Sprintf("String            #%d  // %q", v.StringIndex, s)
	case classfile.FieldrefEntry:
		return fmt.Sprintf("Fieldref          #%d.#%d", v.ClassIndex, v.NameAndTypeIndex)
	case classfile.MethodrefEntry:
		return fmt.Sprintf("Methodref         #%d.#%d", v.ClassIndex, v.NameAndTypeIndex)
	case classfile.InterfaceMethodrefEntry:
		return fmt.Sprintf("InterfaceMethodref #%d.#%d", v.ClassIndex, v.NameAndTypeIndex)
	case classfile.NameAndTypeEntry:
		name, _ := pool.Utf8(v.NameIndex)
		desc, _ := pool.Utf8(v.DescriptorIndex)
		return fmt.Sprintf("NameAndType       #%d:#%d  // %s%s", v.NameIndex, v.DescriptorIndex, name, desc)
	case classfile.MethodHandleEntry:
		return fmt.Sprintf("MethodHandle      kind=%d #%d", v.ReferenceKind, v.ReferenceIndex)
	case classfile.MethodTypeEntry:
		return fmt.Sprintf("MethodType        #%d", v.DescriptorIndex)
	case classfile.InvokeDynamicEntry:
		return fmt.Sprintf("InvokeDynamic     bootstrap=#%d nameAndType=#%d", v.BootstrapMethodAttrIndex, v.NameAndTypeIndex)
	default:
		return fmt.Sprintf("tag=%d", e.Tag())
	}
}
