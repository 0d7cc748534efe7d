package ast

// arity bounds per kind; -1 means unbounded.
var arities = map[Kind][2]int{
	BinaryOp:     {2, 2},
	UnaryOp:      {1, 1},
	PostfixOp:    {1, 1},
	Assign:       {2, 2},
	Ternary:      {3, 3},
	IfStmt:       {2, 3},
	WhileStmt:    {2, 2},
	DoWhileStmt:  {2, 2},
	ForStmt:      {3, 4},
	Function:     {2, -1},
	VarDecl:      {1, 2},
	Param:        {1, 1},
	MemberAccess: {2, 2},
	ArrayAccess:  {2, 2},
	Call:         {0, -1},
	CaseStmt:     {1, -1},
	SwitchStmt:   {1, -1},
	ExprStmt:     {1, 1},
	PointerType:  {1, 1},
	Sizeof:       {1, 1},
}

// Validate checks the per-kind arity of every node in the subtree.
func Validate(root *Node) bool {
	if root == nil {
		return false
	}

	if bounds, ok := arities[root.Kind]; ok {
		n := len(root.Children)
		if n < bounds[0] {
			return false
		}
		if bounds[1] >= 0 && n > bounds[1] {
			return false
		}
	}

	for _, c := range root.Children {
		if !Validate(c) {
			return false
		}
	}

	return true
}
