package backend

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"bfoptc/internal/compileopts"
	"bfoptc/internal/lir"
)

// C lowers LIR to portable C99 source: a flat tape array, a size_t cursor,
// and one byte array per declared BSS buffer. Registers become locally
// scoped const declarations at their single definition site, leaning on
// the SSA guarantee the LIR model carries. The header comment is a
// deterministic function of opts alone; a per-call build ID belongs to
// Compile's own logging, not to an artifact a golden-file test compares
// byte for byte.
type C struct{}

func (c *C) Emit(w io.Writer, prog *lir.Program, opts compileopts.Options) error {
	var b strings.Builder
	b.WriteString("#include <stdint.h>\n#include <stdio.h>\n\n")

	cellT := cellCType(opts.CellWidth)
	fmt.Fprintf(&b, "// tape: %d cells of %s (%s), optimizer=%s level=%d\n",
		opts.TapeSize, cellT, humanize.Bytes(uint64(opts.TapeSize)*uint64(cellBytes(opts.CellWidth))),
		opts.EffectiveOptimizer(), opts.Level)
	fmt.Fprintf(&b, "static %s tape[%d];\n", cellT, opts.TapeSize)
	fmt.Fprintf(&b, "static size_t cursor = %d;\n", opts.TapeSize/2)

	for _, instr := range prog.Instrs {
		if db, ok := instr.(lir.DeclareBssBuf); ok {
			fmt.Fprintf(&b, "static unsigned char %s[%d];\n", db.Name, db.Size)
		}
	}

	b.WriteString("\nint main(void) {\n")
	for _, instr := range prog.Instrs {
		emitCInstr(&b, instr, cellT)
	}
	b.WriteString("    return 0;\n}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func cellCType(w compileopts.CellWidth) string {
	switch w {
	case compileopts.Cell8:
		return "uint8_t"
	case compileopts.Cell16:
		return "uint16_t"
	case compileopts.Cell32:
		return "uint32_t"
	case compileopts.Cell64:
		return "uint64_t"
	}
	return "uint8_t"
}

func cLoc(l interface{}) string {
	switch v := l.(type) {
	case lir.Reg:
		return fmt.Sprintf("r%d", uint32(v))
	case lir.Tape:
		return fmt.Sprintf("tape[cursor + (%d)]", int32(v))
	case lir.Buf:
		return fmt.Sprintf("%s[%d]", v.Name, v.Index)
	case lir.Imm:
		return fmt.Sprintf("%d", int32(v))
	}
	return ""
}

func emitCInstr(b *strings.Builder, instr lir.Instr, cellT string) {
	switch v := instr.(type) {
	case lir.Shift:
		fmt.Fprintf(b, "    cursor = (size_t)((ptrdiff_t)cursor + (%d));\n", v.Delta)
	case lir.Mov:
		emitCAssign(b, v.Dst, cLoc(v.Src), cellT)
	case lir.Add:
		emitCAssign(b, v.Dst, fmt.Sprintf("%s + %s", cLoc(v.A), cLoc(v.B)), cellT)
	case lir.Sub:
		emitCAssign(b, v.Dst, fmt.Sprintf("%s - %s", cLoc(v.A), cLoc(v.B)), cellT)
	case lir.Mul:
		emitCAssign(b, v.Dst, fmt.Sprintf("%s * %s", cLoc(v.A), cLoc(v.B)), cellT)
	case lir.Label:
		fmt.Fprintf(b, "%s: ;\n", v.Name)
	case lir.Jp:
		fmt.Fprintf(b, "    goto %s;\n", v.Target)
	case lir.Jz:
		fmt.Fprintf(b, "    if (%s == 0) goto %s;\n", cLoc(v.Cond), v.Target)
	case lir.Jnz:
		fmt.Fprintf(b, "    if (%s != 0) goto %s;\n", cLoc(v.Cond), v.Target)
	case lir.DeclareBssBuf:
		// declared at file scope; nothing to do inside main.
	case lir.Input:
		fmt.Fprintf(b, "    fread(&%s[%d], 1, %d, stdin);\n", v.Buf, v.Offset, v.Len)
	case lir.Output:
		fmt.Fprintf(b, "    fwrite(&%s[%d], 1, %d, stdout);\n", v.Buf, v.Offset, v.Len)
	}
}

func emitCAssign(b *strings.Builder, dst lir.LVal, rhs, cellT string) {
	if _, ok := dst.(lir.Reg); ok {
		fmt.Fprintf(b, "    const %s %s = %s;\n", cellT, cLoc(dst), rhs)
		return
	}
	fmt.Fprintf(b, "    %s = %s;\n", cLoc(dst), rhs)
}
