package classfile

var mnemonics = map[byte]string{
	OpNop: "nop", OpAconstNull: "aconst_null",
	OpIconstM1: "iconst_m1", OpIconst0: "iconst_0", OpIconst1: "iconst_1",
	OpIconst2: "iconst_2", OpIconst3: "iconst_3", OpIconst4: "iconst_4", OpIconst5: "iconst_5",
	OpLconst0: "lconst_0", OpLconst1: "lconst_1",
	OpFconst0: "fconst_0", OpFconst1: "fconst_1", OpFconst2: "fconst_2",
	OpDconst0: "dconst_0", OpDconst1: "dconst_1",
	OpBipush: "bipush", OpSipush: "sipush",
	OpLdc: "ldc", OpLdcW: "ldc_w", OpLdc2W: "ldc2_w",
	OpIload: "iload", OpLload: "lload", OpFload: "fload", OpDload: "dload", OpAload: "aload",
	OpIload0: "iload_0", OpIload1: "iload_1", OpIload2: "iload_2", OpIload3: "iload_3",
	OpLload0: "lload_0", OpLload1: "lload_1", OpLload2: "lload_2", OpLload3: "lload_3",
	OpFload0: "fload_0", OpFload1: "fload_1", OpFload2: "fload_2", OpFload3: "fload_3",
	OpDload0: "dload_0", OpDload1: "dload_1", OpDload2: "dload_2", OpDload3: "dload_3",
	OpAload0: "aload_0", OpAload1: "aload_1", OpAload2: "aload_2", OpAload3: "aload_3",
	OpIaload: "iaload", OpLaload: "laload", OpFaload: "faload", OpDaload: "daload",
	OpAaload: "aaload", OpBaload: "baload", OpCaload: "caload", OpSaload: "saload",
	OpIstore: "istore", OpLstore: "lstore", OpFstore: "fstore", OpDstore: "dstore", OpAstore: "astore",
	OpIstore0: "istore_0", OpIstore1: "istore_1", OpIstore2: "istore_2", OpIstore3: "istore_3",
	OpLstore0: "lstore_0", OpLstore1: "lstore_1", OpLstore2: "lstore_2", OpLstore3: "lstore_3",
	OpFstore0: "fstore_0", OpFstore1: "fstore_1", OpFstore2: "fstore_2", OpFstore3: "fstore_3",
	OpDstore0: "dstore_0", OpDstore1: "dstore_1", OpDstore2: "dstore_2", OpDstore3: "dstore_3",
	OpAstore0: "astore_0", OpAstore1: "astore_1", OpAstore2: "astore_2", OpAstore3: "astore_3",
	OpIastore: "iastore", OpLastore: "lastore", OpFastore: "fastore", OpDastore: "dastore",
	OpAastore: "aastore", OpBastore: "bastore", OpCastore: "castore", OpSastore: "sastore",
	OpPop: "pop", OpPop2: "pop2",
	OpDup: "dup", OpDupX1: "dup_x1", OpDupX2: "dup_x2",
	OpDup2: "dup2", OpDup2X1: "dup2_x1", OpDup2X2: "dup2_x2", OpSwap: "swap",
	OpIadd: "iadd", OpLadd: "ladd", OpFadd: "fadd", OpDadd: "dadd",
	OpIsub: "isub", OpLsub: "lsub", OpFsub: "fsub", OpDsub: "dsub",
	OpImul: "imul", OpLmul: "lmul", OpFmul: "fmul", OpDmul: "dmul",
	OpIdiv: "idiv", OpLdiv: "ldiv", OpFdiv: "fdiv", OpDdiv: "ddiv",
	OpIrem: "irem", OpLrem: "lrem", OpFrem: "frem", OpDrem: "drem",
	OpIneg: "ineg", OpLneg: "lneg", OpFneg: "fneg", OpDneg: "dneg",
	OpIshl: "ishl", OpLshl: "lshl", OpIshr: "ishr", OpLshr: "lshr",
	OpIushr: "iushr", OpLushr: "lushr",
	OpIand: "iand", OpLand: "land", OpIor: "ior", OpLor: "lor", OpIxor: "ixor", OpLxor: "lxor",
	OpIinc: "iinc",
	OpI2l: "i2l", OpI2f: "i2f", OpI2d: "i2d",
	OpL2i: "l2i", OpL2f: "l2f", OpL2d: "l2d",
	OpF2i: "f2i", OpF2l: "f2l", OpF2d: "f2d",
	OpD2i: "d2i", OpD2l: "d2l", OpD2f: "d2f",
	OpI2b: "i2b", OpI2c: "i2c", OpI2s: "i2s",
	OpLcmp: "lcmp", OpFcmpl: "fcmpl", OpFcmpg: "fcmpg", OpDcmpl: "dcmpl", OpDcmpg: "dcmpg",
	OpIfeq: "ifeq", OpIfne: "ifne", OpIflt: "iflt", OpIfge: "ifge", OpIfgt: "ifgt", OpIfle: "ifle",
	OpIfIcmpeq: "if_icmpeq", OpIfIcmpne: "if_icmpne", OpIfIcmplt: "if_icmplt",
	OpIfIcmpge: "if_icmpge", OpIfIcmpgt: "if_icmpgt", OpIfIcmple: "if_icmple",
	OpIfAcmpeq: "if_acmpeq", OpIfAcmpne: "if_acmpne",
	OpGoto: "goto", OpJsr: "jsr", OpRet: "ret",
	OpTableswitch: "tableswitch", OpLookupswitch: "lookupswitch",
	OpIreturn: "ireturn", OpLreturn: "lreturn", OpFreturn: "freturn",
	OpDreturn: "dreturn", OpAreturn: "areturn", OpReturn: "return",
	OpGetstatic: "getstatic", OpPutstatic: "putstatic",
	OpGetfield: "getfield", OpPutfield: "putfield",
	OpInvokevirtual: "invokevirtual", OpInvokespecial: "invokespecial",
	OpInvokestatic: "invokestatic", OpInvokeinterface: "invokeinterface",
	OpInvokedynamic: "invokedynamic",
	OpNew: "new", OpNewarray: "newarray", OpAnewarray: "anewarray",
	OpArraylength: "arraylength", OpAthrow: "athrow",
	OpCheckcast: "checkcast", OpInstanceof: "instanceof",
	OpMonitorenter: "monitorenter", OpMonitorexit: "monitorexit",
	OpWide: "wide", OpMultianewarray: "multianewarray",
	OpIfnull: "ifnull", OpIfnonnull: "ifnonnull",
	OpGotoW: "goto_w", OpJsrW: "jsr_w",
}
