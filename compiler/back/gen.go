package back

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/cruxlang/crux/compiler/ast"
)

// Generate lowers the program and returns the final assembly text:
// a .data section with interned strings and a .text section opened by
// a synthetic _start that calls main and exits via syscall 60.
func (g *Generator) Generate(ctx context.Context, root *ast.Node) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: generate", "arch", g.arch, "opt", g.opt)
	defer tr.Finish("err", &err)

	if root == nil {
		return nil, errors.New("no program")
	}

	g.node(root)

	out := g.compose()

	tr.Printw("generated", "size", len(out), "strings", len(g.strs), "errors", len(g.errs))

	return out, nil
}

func (g *Generator) compose() []byte {
	var defs []byte
	for i, s := range g.strs {
		defs = hfmt.Appendf(defs, "str%d: .ascii \"%s\"\n", i, s)
	}

	g.data.Reset()
	g.data.Append(defs)

	g.text.Reset()
	g.text.AppendString("_start:\n")
	g.text.AppendString("    call main\n")
	g.text.AppendString("    mov %rax, %rdi\n")
	g.text.AppendString("    mov $60, %rax\n")
	g.text.AppendString("    syscall\n")
	g.text.Append(g.b)

	out := make([]byte, 0, len(g.b)+g.data.Len()+g.text.Len()+64)

	out = append(out, ".global _start\n"...)
	out = append(out, ".section .data\n"...)
	out = append(out, g.data.Bytes()...)
	out = append(out, ".section .text\n"...)
	out = append(out, g.text.Bytes()...)

	return out
}

// node is the dispatch: one lowering per kind, unknown kinds emit a
// comment and no code.
func (g *Generator) node(n *ast.Node) {
	if n == nil {
		return
	}

	g.comment("Node: %v", n.Kind)

	switch n.Kind {
	case ast.Program:
		for _, c := range n.Children {
			g.node(c)
		}
	case ast.Function:
		g.function(n)
	case ast.VarDecl:
		g.varDecl(n)
	case ast.Block:
		g.block(n)
	case ast.IfStmt:
		g.ifStmt(n)
	case ast.WhileStmt:
		g.whileStmt(n)
	case ast.DoWhileStmt:
		g.doWhileStmt(n)
	case ast.ForStmt:
		g.forStmt(n)
	case ast.SwitchStmt:
		g.switchStmt(n)
	case ast.ReturnStmt:
		g.returnStmt(n)
	case ast.BreakStmt:
		g.breakStmt()
	case ast.ContinueStmt:
		g.continueStmt()
	case ast.ExprStmt:
		g.node(n.Child(0))
	case ast.Assign:
		g.assign(n)
	case ast.BinaryOp:
		g.binaryOp(n)
	case ast.UnaryOp:
		g.unaryOp(n)
	case ast.Ternary:
		g.ternary(n)
	case ast.Call:
		g.call(n)
	case ast.ArrayAccess:
		g.arrayAccess(n)
	case ast.MemberAccess:
		g.memberAccess(n)
	case ast.NumberLit:
		g.insf("mov", "$%s, %%rax", n.Value)
	case ast.FloatLit:
		// no float lowering, the literal text goes in as an integer
		g.insf("mov", "$%s, %%rax", n.Value)
	case ast.StringLit:
		g.insf("mov", "$str%d, %%rax", g.internString(n.Value))
	case ast.CharLit:
		g.charLit(n)
	case ast.BoolLit:
		g.boolLit(n)
	case ast.Ident:
		g.identifier(n)
	case ast.Empty:
		// omitted for-clause
	default:
		g.b = append(g.b, "    # unsupported node: "...)
		g.b = append(g.b, n.Kind.String()...)
		g.b = append(g.b, '\n')
	}
}

func (g *Generator) function(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}

	name := n.Value
	ret := n.Child(0)

	var params *ast.Node
	if len(n.Children) > 2 {
		params = n.Child(1)
	}

	body := n.Child(len(n.Children) - 1)

	paramCount := 0
	if params != nil {
		paramCount = len(params.Children)
	}

	g.addFunction(name, typeName(ret), paramCount)

	g.inFunc = true
	g.fn = name
	g.syms.offset = 0

	g.enterScope()

	g.label(name)
	g.prologue(stackFrame)

	if params != nil && params.Kind == ast.ParamList {
		for _, param := range params.Children {
			if param.Kind != ast.Param || len(param.Children) == 0 {
				continue
			}

			typ := typeName(param.Child(0))

			name := param.Value
			if name == "" {
				name = "unnamed"
			}

			g.addVariable(name, typ, typeSize(typ), true)
		}
	}

	g.node(body)

	g.epilogue()

	g.exitScope()
	g.inFunc = false
	g.fn = ""
}

func (g *Generator) prologue(stackSize int) {
	g.ins("push", "%rbp")
	g.ins("mov", "%rsp, %rbp")

	if stackSize > 0 {
		g.insf("sub", "$%d, %%rsp", stackSize)
	}
}

func (g *Generator) epilogue() {
	g.ins("mov", "%rbp, %rsp")
	g.ins("pop", "%rbp")
	g.ins("ret", "")
}

func (g *Generator) varDecl(n *ast.Node) {
	if len(n.Children) < 1 {
		return
	}

	typ := typeName(n.Child(0))

	v := g.addVariable(n.Value, typ, typeSize(typ), false)

	if len(n.Children) > 1 {
		g.node(n.Child(1))

		if g.inFunc {
			g.insf("mov", "%%rax, %d(%%rbp)", v.offset)
		}
	}
}

func (g *Generator) block(n *ast.Node) {
	g.enterScope()

	for _, c := range n.Children {
		g.node(c)
	}

	g.exitScope()
}

func (g *Generator) ifStmt(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}

	elseLabel := g.newLabel("else_")
	endLabel := g.newLabel("endif_")

	g.node(n.Child(0))

	g.ins("test", "%rax, %rax")
	g.ins("je", elseLabel)

	g.node(n.Child(1))
	g.ins("jmp", endLabel)

	g.label(elseLabel)
	if len(n.Children) > 2 {
		g.node(n.Child(2))
	}

	g.label(endLabel)
}

func (g *Generator) whileStmt(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}

	loopLabel := g.newLabel("loop_")
	endLabel := g.newLabel("endloop_")

	g.label(loopLabel)

	g.node(n.Child(0))

	g.ins("test", "%rax, %rax")
	g.ins("je", endLabel)

	g.pushLoop(endLabel, loopLabel)
	g.node(n.Child(1))
	g.popLoop()

	g.ins("jmp", loopLabel)

	g.label(endLabel)
}

func (g *Generator) doWhileStmt(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}

	loopLabel := g.newLabel("loop_")
	condLabel := g.newLabel("do_cond_")
	endLabel := g.newLabel("endloop_")

	g.label(loopLabel)

	g.pushLoop(endLabel, condLabel)
	g.node(n.Child(0))
	g.popLoop()

	g.label(condLabel)
	g.node(n.Child(1))

	g.ins("test", "%rax, %rax")
	g.ins("jne", loopLabel)

	g.label(endLabel)
}

func isEmpty(n *ast.Node) bool {
	return n == nil || n.Kind == ast.Empty
}

func (g *Generator) forStmt(n *ast.Node) {
	if len(n.Children) < 3 {
		return
	}

	init := n.Child(0)
	cond := n.Child(1)
	step := n.Child(2)
	body := n.Child(3)

	loopLabel := g.newLabel("for_loop_")
	stepLabel := g.newLabel("for_step_")
	condLabel := g.newLabel("for_condition_")
	endLabel := g.newLabel("for_end_")

	if !isEmpty(init) {
		g.node(init)
	}

	g.ins("jmp", condLabel)

	g.label(loopLabel)

	if body != nil {
		g.pushLoop(endLabel, stepLabel)
		g.node(body)
		g.popLoop()
	}

	g.label(stepLabel)
	if !isEmpty(step) {
		g.node(step)
	}

	g.label(condLabel)
	if !isEmpty(cond) {
		g.node(cond)
		g.ins("test", "%rax, %rax")
		g.ins("jne", loopLabel)
	} else {
		g.ins("jmp", loopLabel)
	}

	g.label(endLabel)
}

// switchStmt lowers in two passes over one label set: comparisons jump
// to per-case labels collected first, bodies are emitted under those
// same labels after.
func (g *Generator) switchStmt(n *ast.Node) {
	if len(n.Children) < 2 {
		return
	}

	scrutinee := n.Child(0)
	arms := n.Children[1:]

	endLabel := g.newLabel("switch_end_")
	defaultLabel := g.newLabel("switch_default_")

	g.node(scrutinee)
	g.ins("push", "%rax")

	labels := make([]string, len(arms))
	hasDefault := false

	for i, arm := range arms {
		switch arm.Kind {
		case ast.CaseStmt:
			if len(arm.Children) == 0 {
				continue
			}

			labels[i] = g.newLabel("case_")

			g.ins("mov", "(%rsp), %rax")
			g.node(arm.Child(0))
			g.ins("mov", "%rax, %rbx")
			g.ins("mov", "(%rsp), %rax")
			g.ins("cmp", "%rbx, %rax")
			g.ins("je", labels[i])

		case ast.DefaultStmt:
			hasDefault = true
		}
	}

	if hasDefault {
		g.ins("jmp", defaultLabel)
	} else {
		g.ins("jmp", endLabel)
	}

	g.pushLoop(endLabel, "")

	for i, arm := range arms {
		switch arm.Kind {
		case ast.CaseStmt:
			if labels[i] == "" {
				continue
			}

			g.label(labels[i])

			for _, stmt := range arm.Children[1:] {
				g.node(stmt)
			}

		case ast.DefaultStmt:
			g.label(defaultLabel)

			for _, stmt := range arm.Children {
				g.node(stmt)
			}
		}
	}

	g.popLoop()

	g.label(endLabel)
	g.ins("add", "$8, %rsp") // pop the scrutinee
}

func (g *Generator) returnStmt(n *ast.Node) {
	if len(n.Children) > 0 {
		g.node(n.Child(0))
	} else {
		g.ins("mov", "$0, %rax")
	}

	g.epilogue()
}

func (g *Generator) breakStmt() {
	dst := g.breakLabel()
	if dst == "" {
		g.errorf("break outside loop or switch")
		return
	}

	g.ins("jmp", dst)
}

func (g *Generator) continueStmt() {
	dst := g.continueLabel()
	if dst == "" {
		g.errorf("continue outside loop")
		return
	}

	g.ins("jmp", dst)
}

func (g *Generator) binaryOp(n *ast.Node) {
	if len(n.Children) != 2 {
		return
	}

	g.node(n.Child(0))
	g.ins("push", "%rax")

	g.node(n.Child(1))
	g.ins("mov", "%rax, %rbx")
	g.ins("pop", "%rax")

	switch n.Value {
	case "+":
		g.ins("add", "%rbx, %rax")
	case "-":
		g.ins("sub", "%rbx, %rax")
	case "*":
		g.ins("imul", "%rbx, %rax")
	case "/":
		g.ins("cqo", "")
		g.ins("idiv", "%rbx")
	case "%":
		g.ins("cqo", "")
		g.ins("idiv", "%rbx")
		g.ins("mov", "%rdx, %rax")
	case "&":
		g.ins("and", "%rbx, %rax")
	case "|":
		g.ins("or", "%rbx, %rax")
	case "^":
		g.ins("xor", "%rbx, %rax")
	case "<<":
		g.ins("mov", "%rbx, %rcx")
		g.ins("shl", "%cl, %rax")
	case ">>":
		g.ins("mov", "%rbx, %rcx")
		g.ins("sar", "%cl, %rax")
	case "==":
		g.compare("sete")
	case "!=":
		g.compare("setne")
	case "<":
		g.compare("setl")
	case ">":
		g.compare("setg")
	case "<=":
		g.compare("setle")
	case ">=":
		g.compare("setge")
	case "&&":
		g.ins("test", "%rax, %rax")
		g.ins("setne", "%al")
		g.ins("test", "%rbx, %rbx")
		g.ins("setne", "%bl")
		g.ins("and", "%bl, %al")
		g.ins("movzb", "%al, %rax")
	case "||":
		g.ins("or", "%rbx, %rax")
		g.ins("test", "%rax, %rax")
		g.ins("setne", "%al")
		g.ins("movzb", "%al, %rax")
	default:
		g.errorf("unsupported binary operator %q", n.Value)
	}
}

func (g *Generator) compare(set string) {
	g.ins("cmp", "%rbx, %rax")
	g.ins(set, "%al")
	g.ins("movzb", "%al, %rax")
}

func (g *Generator) unaryOp(n *ast.Node) {
	if len(n.Children) != 1 {
		return
	}

	operand := n.Child(0)

	switch n.Value {
	case "-":
		g.node(operand)
		g.ins("neg", "%rax")
	case "+":
		g.node(operand)
	case "!":
		g.node(operand)
		g.ins("test", "%rax, %rax")
		g.ins("sete", "%al")
		g.ins("movzb", "%al, %rax")
	case "~":
		g.node(operand)
		g.ins("not", "%rax")
	case "&":
		if operand.Kind != ast.Ident {
			return
		}

		v := g.findVariable(operand.Value)
		if v != nil && g.inFunc {
			g.insf("lea", "$%d, %%rax", v.offset)
			g.ins("add", "%rbp, %rax")
		}
	case "*":
		g.node(operand)
		g.ins("mov", "(%rax), %rax")
	}
}

func (g *Generator) assign(n *ast.Node) {
	if len(n.Children) != 2 {
		return
	}

	target := n.Child(0)
	value := n.Child(1)

	g.node(value)

	// compound assignments reload the target and combine
	switch n.Value {
	case "=":
	case "+=":
		g.compound(target, "add", false)
	case "-=":
		g.compound(target, "sub", false)
	case "*=":
		g.compound(target, "imul", false)
	case "/=":
		g.compound(target, "idiv", false)
	case "%=":
		g.compound(target, "idiv", true)
	}

	if target.Kind == ast.Ident {
		v := g.findVariable(target.Value)
		if v != nil && g.inFunc {
			g.insf("mov", "%%rax, %d(%%rbp)", v.offset)
		}
	}
}

func (g *Generator) compound(target *ast.Node, op string, remainder bool) {
	g.ins("push", "%rax")
	g.node(target)
	g.ins("pop", "%rbx")

	if op == "idiv" {
		g.ins("cqo", "")
		g.ins("idiv", "%rbx")

		if remainder {
			g.ins("mov", "%rdx, %rax")
		}

		return
	}

	g.insf(op, "%%rbx, %%rax")
}

func (g *Generator) ternary(n *ast.Node) {
	if len(n.Children) != 3 {
		return
	}

	falseLabel := g.newLabel("ternary_false_")
	endLabel := g.newLabel("ternary_end_")

	g.node(n.Child(0))
	g.ins("test", "%rax, %rax")
	g.ins("je", falseLabel)

	g.node(n.Child(1))
	g.ins("jmp", endLabel)

	g.label(falseLabel)
	g.node(n.Child(2))

	g.label(endLabel)
}

func (g *Generator) call(n *ast.Node) {
	if n.Value == "printf" {
		g.printf(n)
		return
	}

	// push arguments right to left
	for i := len(n.Children) - 1; i >= 0; i-- {
		g.node(n.Children[i])
		g.ins("push", "%rax")
	}

	g.ins("call", n.Value)

	if len(n.Children) > 0 {
		g.insf("add", "$%d, %%rsp", len(n.Children)*8)
	}
}

func (g *Generator) arrayAccess(n *ast.Node) {
	if len(n.Children) != 2 {
		return
	}

	g.node(n.Child(0))
	g.ins("push", "%rax")

	g.node(n.Child(1))
	g.ins("imul", "$8, %rax") // fixed 8-byte element stride
	g.ins("pop", "%rbx")
	g.ins("add", "%rbx, %rax")
	g.ins("mov", "(%rax), %rax")
}

func (g *Generator) memberAccess(n *ast.Node) {
	if len(n.Children) != 2 {
		return
	}

	g.node(n.Child(0))

	// no struct layout engine: member offsets are all zero
	switch n.Value {
	case ".":
		g.ins("add", "$0, %rax")
	case "->":
		g.ins("mov", "(%rax), %rax")
		g.ins("add", "$0, %rax")
	}
}

func (g *Generator) charLit(n *ast.Node) {
	if len(n.Value) > 0 {
		g.insf("mov", "$%d, %%rax", int(n.Value[0]))
	} else {
		g.ins("mov", "$0, %rax")
	}
}

func (g *Generator) boolLit(n *ast.Node) {
	if n.Value == "true" {
		g.ins("mov", "$1, %rax")
	} else {
		g.ins("mov", "$0, %rax")
	}
}

func (g *Generator) identifier(n *ast.Node) {
	v := g.findVariable(n.Value)
	if v != nil && g.inFunc {
		g.insf("mov", "%d(%%rbp), %%rax", v.offset)
	}
}

// printf is not printf: it is a write(2) shim. One string literal
// argument writes the raw text; a "%d" format with a second argument
// stringifies that argument's literal payload.
func (g *Generator) printf(n *ast.Node) {
	if len(n.Children) == 0 {
		return
	}

	if len(n.Children) >= 2 {
		format := n.Child(0)
		arg := n.Child(1)

		if format.Kind == ast.StringLit && format.Value == "%d" {
			g.node(arg)

			text := strconv.FormatInt(arg.Lit.Int, 10)
			idx := g.internString(text)

			g.insf("mov", "$str%d, %%rsi", idx)
			g.insf("mov", "$%d, %%rdx", len(text))
		}
	} else {
		g.node(n.Child(0))
		g.ins("mov", "%rax, %rsi")

		if n.Child(0).Kind == ast.StringLit {
			g.insf("mov", "$%d, %%rdx", len(n.Child(0).Value))
		}
	}

	g.ins("mov", "$1, %rdi") // stdout
	g.ins("mov", "$1, %rax") // write
	g.ins("syscall", "")
}
