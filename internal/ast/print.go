package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump returns a human-readable representation of the AST.
func Dump(node Node) string {
	var sb strings.Builder
	fprintNode(&sb, node, 0)
	return sb.String()
}

func fprintNode(w io.Writer, n Node, indent int) {
	if n == nil {
		return
	}

	ind := strings.Repeat("  ", indent)

	switch n := n.(type) {
	case *File:
		fmt.Fprintf(w, "%sFile\n", ind)
		for _, it := range n.Items {
			fprintNode(w, it, indent+1)
		}

	case *UseDecl:
		parts := make([]string, len(n.Components))
		for i, c := range n.Components {
			parts[i] = c.Name
			if c.Wildcard {
				parts[i] = "*"
			}
		}
		fmt.Fprintf(w, "%sUseDecl path=%s\n", ind, strings.Join(parts, "::"))

	case *FnDecl:
		asyncStr := ""
		if n.Async {
			asyncStr = " async"
		}
		fmt.Fprintf(w, "%sFnDecl name=%s%s args=%s\n", ind, n.Name, asyncStr, fnArgs(n.Args))
		if n.Body != nil {
			fprintNode(w, n.Body, indent+1)
		}

	case *StructDecl:
		fmt.Fprintf(w, "%sStructDecl name=%s%s\n", ind, n.Name, structBody(n.Body))

	case *EnumDecl:
		fmt.Fprintf(w, "%sEnumDecl name=%s\n", ind, n.Name)
		for _, v := range n.Variants {
			fmt.Fprintf(w, "%s  Variant name=%s%s\n", ind, v.Name, structBody(v.Body))
		}

	case *ImplDecl:
		fmt.Fprintf(w, "%sImplDecl type=%s\n", ind, pathString(n.Path))
		for _, fn := range n.Fns {
			fprintNode(w, fn, indent+1)
		}

	case *Block:
		fmt.Fprintf(w, "%sBlock\n", ind)
		for _, e := range n.Exprs {
			fprintNode(w, e, indent+1)
		}
		if n.Trailing != nil {
			fmt.Fprintf(w, "%s  Trailing:\n", ind)
			fprintNode(w, n.Trailing, indent+2)
		}

	case *DeclExpr:
		fprintNode(w, n.Item, indent)

	case *Path:
		fmt.Fprintf(w, "%sPath %s\n", ind, pathString(n))

	case *SelfExpr:
		fmt.Fprintf(w, "%sSelf\n", ind)

	case *LitUnit:
		fmt.Fprintf(w, "%sUnit\n", ind)
	case *LitBool:
		fmt.Fprintf(w, "%sBool %v\n", ind, n.Value)
	case *LitNumber:
		if n.IsFloat {
			fmt.Fprintf(w, "%sFloat %v\n", ind, n.Float)
		} else {
			fmt.Fprintf(w, "%sInteger %d\n", ind, n.Int)
		}
	case *LitChar:
		fmt.Fprintf(w, "%sChar %q\n", ind, n.Value)
	case *LitByte:
		fmt.Fprintf(w, "%sByte %d\n", ind, n.Value)
	case *LitStr:
		fmt.Fprintf(w, "%sString %q\n", ind, n.Value)
	case *LitByteStr:
		fmt.Fprintf(w, "%sBytes %q\n", ind, n.Value)

	case *LitTemplate:
		fmt.Fprintf(w, "%sTemplate\n", ind)
		for _, c := range n.Components {
			if c.Expr == nil {
				fmt.Fprintf(w, "%s  %q\n", ind, c.String)
				continue
			}
			fprintNode(w, c.Expr, indent+1)
		}

	case *LitTuple:
		fmt.Fprintf(w, "%sTuple\n", ind)
		fprintList(w, n.Items, indent+1)

	case *LitVec:
		fmt.Fprintf(w, "%sVec\n", ind)
		fprintList(w, n.Items, indent+1)

	case *LitObject:
		name := "#"
		if n.Ident != nil {
			name = pathString(n.Ident)
		}
		fmt.Fprintf(w, "%sObject %s\n", ind, name)
		for _, a := range n.Assignments {
			fmt.Fprintf(w, "%s  %s:\n", ind, a.Key)
			fprintNode(w, a.Value, indent+2)
		}

	case *ExprGroup:
		fmt.Fprintf(w, "%sGroup\n", ind)
		fprintNode(w, n.Expr, indent+1)

	case *ExprUnary:
		fmt.Fprintf(w, "%sUnary %v\n", ind, n.Op)
		fprintNode(w, n.Expr, indent+1)

	case *ExprBinary:
		fmt.Fprintf(w, "%sBinary %v\n", ind, n.Op)
		fprintNode(w, n.Lhs, indent+1)
		fprintNode(w, n.Rhs, indent+1)

	case *ExprLet:
		fmt.Fprintf(w, "%sLet\n", ind)
		fprintNode(w, n.Pat, indent+1)
		fprintNode(w, n.Expr, indent+1)

	case *ExprIf:
		fmt.Fprintf(w, "%sIf\n", ind)
		fprintNode(w, n.Condition, indent+1)
		fprintNode(w, n.Block, indent+1)
		for _, ei := range n.ElseIfs {
			fmt.Fprintf(w, "%s  ElseIf:\n", ind)
			fprintNode(w, ei.Condition, indent+2)
			fprintNode(w, ei.Block, indent+2)
		}
		if n.Else != nil {
			fmt.Fprintf(w, "%s  Else:\n", ind)
			fprintNode(w, n.Else, indent+2)
		}

	case *ExprWhile:
		fmt.Fprintf(w, "%sWhile%s\n", ind, label(n.Label))
		fprintNode(w, n.Condition, indent+1)
		fprintNode(w, n.Body, indent+1)

	case *ExprLoop:
		fmt.Fprintf(w, "%sLoop%s\n", ind, label(n.Label))
		fprintNode(w, n.Body, indent+1)

	case *ExprFor:
		fmt.Fprintf(w, "%sFor%s var=%s\n", ind, label(n.Label), n.Var)
		fprintNode(w, n.Iter, indent+1)
		fprintNode(w, n.Body, indent+1)

	case *ExprBreak:
		fmt.Fprintf(w, "%sBreak%s\n", ind, label(n.Label))
		fprintNode(w, n.Value, indent+1)

	case *ExprReturn:
		fmt.Fprintf(w, "%sReturn\n", ind)
		fprintNode(w, n.Value, indent+1)

	case *ExprYield:
		fmt.Fprintf(w, "%sYield\n", ind)
		fprintNode(w, n.Value, indent+1)

	case *ExprMatch:
		fmt.Fprintf(w, "%sMatch\n", ind)
		fprintNode(w, n.Expr, indent+1)
		for _, b := range n.Branches {
			fmt.Fprintf(w, "%s  Branch:\n", ind)
			fprintNode(w, b.Pat, indent+2)
			if b.Guard != nil {
				fmt.Fprintf(w, "%s    Guard:\n", ind)
				fprintNode(w, b.Guard, indent+3)
			}
			fprintNode(w, b.Body, indent+2)
		}

	case *ExprSelect:
		fmt.Fprintf(w, "%sSelect\n", ind)
		for _, b := range n.Branches {
			fmt.Fprintf(w, "%s  Branch:\n", ind)
			fprintNode(w, b.Pat, indent+2)
			fprintNode(w, b.Expr, indent+2)
			fprintNode(w, b.Body, indent+2)
		}
		if n.Default != nil {
			fmt.Fprintf(w, "%s  Default:\n", ind)
			fprintNode(w, n.Default.Body, indent+2)
		}

	case *ExprCall:
		fmt.Fprintf(w, "%sCall\n", ind)
		fprintNode(w, n.Expr, indent+1)
		if len(n.Args) > 0 {
			fmt.Fprintf(w, "%s  Args:\n", ind)
			fprintList(w, n.Args, indent+2)
		}

	case *ExprFieldAccess:
		if n.IsIndex {
			fmt.Fprintf(w, "%sField .%d\n", ind, n.Index)
		} else {
			fmt.Fprintf(w, "%sField .%s\n", ind, n.Field)
		}
		fprintNode(w, n.Expr, indent+1)

	case *ExprIndexGet:
		fmt.Fprintf(w, "%sIndexGet\n", ind)
		fprintNode(w, n.Target, indent+1)
		fprintNode(w, n.Index, indent+1)

	case *ExprIndexSet:
		fmt.Fprintf(w, "%sIndexSet\n", ind)
		fprintNode(w, n.Target, indent+1)
		fprintNode(w, n.Index, indent+1)
		fprintNode(w, n.Value, indent+1)

	case *ExprClosure:
		asyncStr := ""
		if n.Async {
			asyncStr = " async"
		}
		fmt.Fprintf(w, "%sClosure%s args=%s\n", ind, asyncStr, fnArgs(n.Args))
		fprintNode(w, n.Body, indent+1)

	case *ExprAwait:
		fmt.Fprintf(w, "%sAwait\n", ind)
		fprintNode(w, n.Expr, indent+1)

	case *ExprTry:
		fmt.Fprintf(w, "%sTry\n", ind)
		fprintNode(w, n.Expr, indent+1)

	case *ExprMacroCall:
		fmt.Fprintf(w, "%sMacro %s! %q\n", ind, pathString(n.Path), n.Input)
		if n.Expanded != nil {
			fprintNode(w, n.Expanded, indent+1)
		}

	case *PatPath:
		fmt.Fprintf(w, "%sPatPath %s\n", ind, pathString(n.Path))
	case *PatIgnore:
		fmt.Fprintf(w, "%sPatIgnore\n", ind)
	case *PatUnit:
		fmt.Fprintf(w, "%sPatUnit\n", ind)
	case *PatByte:
		fmt.Fprintf(w, "%sPatByte %d\n", ind, n.Value)
	case *PatChar:
		fmt.Fprintf(w, "%sPatChar %q\n", ind, n.Value)
	case *PatNumber:
		fmt.Fprintf(w, "%sPatNumber\n", ind)
		fprintNode(w, n.Number, indent+1)
	case *PatString:
		fmt.Fprintf(w, "%sPatString %q\n", ind, n.Value)

	case *PatVec:
		fmt.Fprintf(w, "%sPatVec%s\n", ind, open(n.Open))
		for _, p := range n.Items {
			fprintNode(w, p, indent+1)
		}

	case *PatTuple:
		name := ""
		if n.Path != nil {
			name = " " + pathString(n.Path)
		}
		fmt.Fprintf(w, "%sPatTuple%s%s\n", ind, name, open(n.Open))
		for _, p := range n.Items {
			fprintNode(w, p, indent+1)
		}

	case *PatObject:
		name := " #"
		if n.Ident != nil {
			name = " " + pathString(n.Ident)
		}
		fmt.Fprintf(w, "%sPatObject%s%s\n", ind, name, open(n.Open))
		for _, f := range n.Fields {
			fmt.Fprintf(w, "%s  %s:\n", ind, f.Key)
			fprintNode(w, f.Binding, indent+2)
		}

	default:
		fmt.Fprintf(w, "%s%T\n", ind, n)
	}
}

func fprintList(w io.Writer, list []Expr, indent int) {
	for _, e := range list {
		fprintNode(w, e, indent)
	}
}

func pathString(p *Path) string {
	if p == nil {
		return "<nil>"
	}
	return strings.Join(p.Names, "::")
}

func fnArgs(args []*FnArg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch a.Kind {
		case ArgSelf:
			parts[i] = "self"
		case ArgIgnore:
			parts[i] = "_"
		default:
			parts[i] = a.Name
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func structBody(b StructBody) string {
	switch b.Kind {
	case StructTuple:
		return " (" + strings.Join(b.Fields, ", ") + ")"
	case StructNamed:
		return " {" + strings.Join(b.Fields, ", ") + "}"
	default:
		return ""
	}
}

func label(l string) string {
	if l == "" {
		return ""
	}
	return " '" + l
}

func open(o bool) string {
	if o {
		return " .."
	}
	return ""
}
