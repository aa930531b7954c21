// Package classmodel builds the per-class structures spec §3 calls the
// "class model" from a parsed AST: members indexed by identity, the
// callable-name projection, and the composed-field map. Components D
// (inheritance), E (semantic diff), and F (propagation) all build on this
// shared extraction instead of re-walking class bodies themselves: one AST
// walk serves every consumer.
package classmodel

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kestrel-ci/pomimpact/internal/tsast"
	"github.com/kestrel-ci/pomimpact/pkg/types"
)

// FileModel is every class declared at the top level of one parsed file.
type FileModel struct {
	Path    string
	Classes []*types.ClassModel
	// ClassNodes maps a class name to its class_declaration node so
	// callers needing the raw AST (propagation's direct-edge walk) don't
	// have to re-parse.
	ClassNodes map[string]*sitter.Node
}

// BuildFile walks root (a parsed program's root node) and extracts every
// top-level class declaration into a ClassModel.
func BuildFile(path string, root *sitter.Node, content []byte) *FileModel {
	fm := &FileModel{Path: path, ClassNodes: make(map[string]*sitter.Node)}

	tsast.WalkTopLevel(root, func(node *sitter.Node) {
		classNode := unwrapExportedClass(node)
		if classNode == nil {
			return
		}
		name := tsast.ClassName(classNode, content)
		if name == "" {
			return
		}
		super := tsast.SuperClassName(classNode, content)
		cm := types.NewClassModel(name, super, path)
		body := tsast.ClassBody(classNode)

		tsast.WalkClassMembers(body, func(member *sitter.Node) {
			identity, ok := tsast.MemberIdentityOf(member, content)
			if !ok {
				return
			}
			mm := &types.MemberModel{
				ClassName:  name,
				MemberName: identity.Name,
				Kind:       identity.Kind,
				Callable:   identity.Kind.Callable() || tsast.FieldValueIsCallable(member),
			}
			if hasBody(member) {
				mm.ImplementationNode = member
			} else {
				mm.OverloadNodes = append(mm.OverloadNodes, member)
			}
			// A second declaration for the same identity (TS overload
			// signatures) merges into the existing MemberModel rather than
			// overwriting it.
			if existing, ok := cm.MembersByIdentity[identity]; ok {
				if mm.ImplementationNode != nil {
					existing.ImplementationNode = mm.ImplementationNode
				} else {
					existing.OverloadNodes = append(existing.OverloadNodes, mm.OverloadNodes...)
				}
			} else {
				cm.MembersByIdentity[identity] = mm
				if mm.Callable {
					cm.CallableMembersByName[identity.Name] = mm
				}
			}

			if identity.Kind == types.KindField {
				if className, ok := tsast.FieldTypeAnnotationClassName(member, content); ok {
					cm.ComposedFieldClassByName[identity.Name] = className
				}
			}
			if identity.Kind == types.KindConstructor {
				for field, className := range tsast.ConstructorComposedFields(member, content) {
					cm.ComposedFieldClassByName[field] = className
				}
			}
		})

		fm.Classes = append(fm.Classes, cm)
		fm.ClassNodes[name] = classNode
	})

	return fm
}

func hasBody(member *sitter.Node) bool {
	if member == nil {
		return false
	}
	return member.ChildByFieldName("body") != nil
}

// unwrapExportedClass returns the class_declaration node whether node is
// itself one, or an export_statement wrapping one (`export class X {}`,
// `export default class X {}`).
func unwrapExportedClass(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if tsast.IsClassDeclaration(node) {
		return node
	}
	if node.Type() != "export_statement" {
		return nil
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		if tsast.IsClassDeclaration(c) {
			return c
		}
	}
	return nil
}
