package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruxlang/crux/compiler/memory"
)

func newBuilder() *Builder {
	return NewBuilder(memory.NewArena[Node](0), memory.NewPool(0))
}

func TestAddChildGrowth(t *testing.T) {
	b := newBuilder()

	n := b.New(Block)
	require.Equal(t, 0, cap(n.Children))

	n.AddChild(b.New(BreakStmt))
	assert.Equal(t, 4, cap(n.Children))

	for i := 0; i < 4; i++ {
		n.AddChild(b.New(BreakStmt))
	}

	assert.Equal(t, 5, len(n.Children))
	assert.Equal(t, 8, cap(n.Children))
}

func TestAddChildNil(t *testing.T) {
	b := newBuilder()

	n := b.New(Block)
	n.AddChild(nil)

	assert.Equal(t, 0, len(n.Children))
}

func TestInsertRemoveChild(t *testing.T) {
	b := newBuilder()

	n := b.New(Block)
	first := b.NewValue(Ident, "first")
	second := b.NewValue(Ident, "second")
	third := b.NewValue(Ident, "third")

	n.AddChild(first)
	n.AddChild(third)
	n.InsertChild(1, second)

	require.Equal(t, 3, len(n.Children))
	assert.Equal(t, "first", n.Child(0).Value)
	assert.Equal(t, "second", n.Child(1).Value)
	assert.Equal(t, "third", n.Child(2).Value)

	n.RemoveChild(1)

	require.Equal(t, 2, len(n.Children))
	assert.Equal(t, "first", n.Child(0).Value)
	assert.Equal(t, "third", n.Child(1).Value)

	assert.Nil(t, n.Child(5))
	assert.Nil(t, n.Child(-1))
}

func equalTree(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.Kind != b.Kind || a.Value != b.Value || len(a.Children) != len(b.Children) {
		return false
	}

	for i := range a.Children {
		if !equalTree(a.Children[i], b.Children[i]) {
			return false
		}
	}

	return true
}

func TestCopy(t *testing.T) {
	b := newBuilder()

	op := b.NewValue(BinaryOp, "+")
	op.AddChild(b.NewLiteral(NumberLit, "2", Literal{Int: 2}))
	op.AddChild(b.NewLiteral(NumberLit, "3", Literal{Int: 3}))

	c := b.Copy(op)

	require.NotSame(t, op, c)
	assert.True(t, equalTree(op, c))
	assert.Equal(t, int64(2), c.Child(0).Lit.Int)
}

func TestVisitOrder(t *testing.T) {
	b := newBuilder()

	root := b.NewValue(Block, "root")
	left := b.NewValue(Ident, "left")
	right := b.NewValue(Ident, "right")
	leaf := b.NewValue(Ident, "leaf")

	left.AddChild(leaf)
	root.AddChild(left)
	root.AddChild(right)

	var order []string
	Visit(root, func(n *Node) {
		order = append(order, n.Value)
	})

	assert.Equal(t, []string{"root", "left", "leaf", "right"}, order)
}

func TestVisitContext(t *testing.T) {
	b := newBuilder()

	root := b.New(Block)
	root.AddChild(b.New(BreakStmt))
	root.AddChild(b.New(BreakStmt))

	count := 0
	VisitContext(root, &count, func(n *Node, ctx any) {
		*ctx.(*int)++
	})

	assert.Equal(t, 3, count)
}

func TestFind(t *testing.T) {
	b := newBuilder()

	root := b.New(Program)
	fn := b.NewValue(Function, "main")
	body := b.New(Block)
	ret := b.New(ReturnStmt)

	body.AddChild(ret)
	fn.AddChild(b.NewValue(Type, "i32"))
	fn.AddChild(body)
	root.AddChild(fn)

	assert.Same(t, ret, FindByKind(root, ReturnStmt))
	assert.Same(t, fn, FindByValue(root, "main"))
	assert.Nil(t, FindByKind(root, WhileStmt))
	assert.Nil(t, FindByValue(root, "missing"))
}

func TestValidate(t *testing.T) {
	b := newBuilder()

	op := b.NewValue(BinaryOp, "+")
	op.AddChild(b.NewValue(NumberLit, "1"))

	// one child is not enough for a binary operator
	assert.False(t, Validate(op))

	op.AddChild(b.NewValue(NumberLit, "2"))
	assert.True(t, Validate(op))

	tern := b.New(Ternary)
	tern.AddChild(op)
	tern.AddChild(b.NewValue(NumberLit, "1"))
	tern.AddChild(b.NewValue(NumberLit, "2"))
	assert.True(t, Validate(tern))

	tern.AddChild(b.NewValue(NumberLit, "3"))
	assert.False(t, Validate(tern))
}

func TestValidateIf(t *testing.T) {
	b := newBuilder()

	n := b.New(IfStmt)
	n.AddChild(b.NewValue(NumberLit, "1"))
	assert.False(t, Validate(n))

	n.AddChild(b.New(Block))
	assert.True(t, Validate(n))

	n.AddChild(b.New(Block))
	assert.True(t, Validate(n))

	n.AddChild(b.New(Block))
	assert.False(t, Validate(n))
}

func TestPrint(t *testing.T) {
	b := newBuilder()

	fn := b.NewValue(Function, "main")
	fn.AddChild(b.NewValue(Type, "i32"))
	fn.AddChild(b.New(Block))

	var sb strings.Builder
	Print(&sb, fn, 0)

	out := sb.String()
	assert.Contains(t, out, "FUNCTION: 'main'")
	assert.Contains(t, out, "  TYPE: 'i32'")
	assert.Contains(t, out, "  BLOCK")

	sb.Reset()
	PrintDebug(&sb, fn, 0)
	assert.Contains(t, sb.String(), "children=2/4")
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsLiteralKind(NumberLit))
	assert.True(t, IsLiteralKind(NullLit))
	assert.False(t, IsLiteralKind(Ident))

	assert.True(t, IsStatementKind(WhileStmt))
	assert.False(t, IsStatementKind(BinaryOp))

	assert.True(t, IsExpressionKind(BinaryOp))
	assert.True(t, IsExpressionKind(Ident))
	assert.False(t, IsExpressionKind(Block))

	assert.True(t, IsDeclarationKind(Function))
	assert.False(t, IsDeclarationKind(Program))
}

func TestFreeIsNoop(t *testing.T) {
	b := newBuilder()

	n := b.NewValue(Ident, "x")
	n.Free()

	assert.Equal(t, "x", n.Value)
}
