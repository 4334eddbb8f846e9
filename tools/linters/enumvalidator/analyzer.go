// Package enumvalidator defines a go/analysis pass that flags untyped
// string literals assigned to struct fields whose declared type is a
// named string-based enum (ActionType, TaskType, EvidenceType, and the
// like). A raw literal bypasses the named constants and typo-proofing
// those constants exist for in the first place.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "enumvalidator",
	Doc:      "flags string literals assigned to named string enum fields instead of declared constants",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.AssignStmt)(nil),
		(*ast.CompositeLit)(nil),
	}

	insp.Preorder(nodeFilter, func(n ast.Node) {
		switch stmt := n.(type) {
		case *ast.AssignStmt:
			checkAssign(pass, stmt)
		case *ast.CompositeLit:
			checkCompositeLit(pass, stmt)
		}
	})

	return nil, nil
}

// checkAssign flags `x.Field = "literal"` where Field's type is a named
// string enum.
func checkAssign(pass *analysis.Pass, stmt *ast.AssignStmt) {
	if stmt.Tok.String() != "=" || len(stmt.Lhs) != len(stmt.Rhs) {
		return
	}
	for i, lhs := range stmt.Lhs {
		sel, ok := lhs.(*ast.SelectorExpr)
		if !ok {
			continue
		}
		lit, ok := stmt.Rhs[i].(*ast.BasicLit)
		if !ok || lit.Kind.String() != "STRING" {
			continue
		}
		reportIfEnumField(pass, sel, lit.Pos())
	}
}

// checkCompositeLit flags `Integration{Field: "literal"}` in the same
// fashion, for keyed struct literals.
func checkCompositeLit(pass *analysis.Pass, lit *ast.CompositeLit) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		ident, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}
		strLit, ok := kv.Value.(*ast.BasicLit)
		if !ok || strLit.Kind.String() != "STRING" {
			continue
		}
		if lit.Type == nil {
			continue
		}

		structType := pass.TypesInfo.TypeOf(lit.Type)
		_, fieldName, enumType, ok := enumFieldOf(structType, ident.Name)
		if !ok {
			continue
		}
		pass.Reportf(strLit.Pos(), "enum field %s assigned string literal (use a %s constant)", fieldName, enumType)
	}
}

func reportIfEnumField(pass *analysis.Pass, sel *ast.SelectorExpr, pos token.Pos) {
	recvType := pass.TypesInfo.TypeOf(sel.X)
	if recvType == nil {
		return
	}

	_, fieldName, enumType, ok := enumFieldOf(recvType, sel.Sel.Name)
	if !ok {
		return
	}
	pass.Reportf(sel.Pos(), "enum field %s assigned string literal (use a %s constant)", fieldName, enumType)
}

// enumFieldOf reports whether fieldName on structType (or *structType) is
// a named type whose underlying type is string but which is not the
// built-in string type itself — the signature of a hand-rolled enum.
func enumFieldOf(structType types.Type, fieldName string) (types.Type, string, string, bool) {
	t := structType
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}

	named, ok := t.(*types.Named)
	if !ok {
		return nil, "", "", false
	}
	strct, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil, "", "", false
	}

	for i := 0; i < strct.NumFields(); i++ {
		field := strct.Field(i)
		if field.Name() != fieldName {
			continue
		}
		fieldNamed, ok := field.Type().(*types.Named)
		if !ok {
			return nil, "", "", false
		}
		basic, ok := fieldNamed.Underlying().(*types.Basic)
		if !ok || basic.Kind() != types.String {
			return nil, "", "", false
		}
		return fieldNamed, field.Name(), fieldNamed.Obj().Name(), true
	}
	return nil, "", "", false
}
