//go:build cgo

package symbols

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TreeSitterAvailable reports whether tree-sitter parsing is compiled in.
func TreeSitterAvailable() bool {
	return true
}

func treeSitterSupports(lang Language) bool {
	_, err := getLanguage(lang)
	return err == nil
}

// getLanguage returns the tree-sitter Language for a given language identifier.
func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// parseDecls parses a fragment and collects named declarations. Fragments
// rarely parse cleanly; declarations inside ERROR nodes are still visited.
// A parser is created per call since sitter.Parser is not goroutine safe.
func parseDecls(ctx context.Context, lang Language, lines []string) ([]Symbol, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)

	source := []byte(strings.Join(lines, "\n"))
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	declTypes := declNodeTypes(lang)
	var out []Symbol
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if kind, ok := declTypes[node.Type()]; ok {
			if name := declName(node, source, lang); name != "" {
				row := int(node.StartPoint().Row)
				line := ""
				if row < len(lines) {
					line = lines[row]
				}
				out = append(out, Symbol{
					Name:     name,
					Kind:     kind,
					Line:     row + 1,
					Exported: isExported(lang, name, line),
					Source:   "treesitter",
				})
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

// declNodeTypes returns the node types that declare a named symbol.
func declNodeTypes(lang Language) map[string]Kind {
	switch lang {
	case LangGo:
		return map[string]Kind{
			"function_declaration": KindFunction,
			"method_declaration":   KindMethod,
			"type_spec":            KindType,
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		return map[string]Kind{
			"function_declaration":           KindFunction,
			"generator_function_declaration": KindFunction,
			"class_declaration":              KindClass,
			"abstract_class_declaration":     KindClass,
			"interface_declaration":          KindInterface,
			"type_alias_declaration":         KindType,
			"enum_declaration":               KindType,
			"method_definition":              KindMethod,
		}
	case LangPython:
		return map[string]Kind{
			"function_definition": KindFunction,
			"class_definition":    KindClass,
		}
	case LangRust:
		return map[string]Kind{
			"function_item": KindFunction,
			"struct_item":   KindType,
			"enum_item":     KindType,
			"trait_item":    KindInterface,
		}
	case LangJava:
		return map[string]Kind{
			"class_declaration":       KindClass,
			"interface_declaration":   KindInterface,
			"enum_declaration":        KindType,
			"method_declaration":      KindMethod,
			"constructor_declaration": KindMethod,
		}
	case LangKotlin:
		return map[string]Kind{
			"class_declaration":    KindClass,
			"object_declaration":   KindClass,
			"function_declaration": KindFunction,
		}
	}
	return nil
}

// declName extracts the declared name of a node.
func declName(node *sitter.Node, source []byte, lang Language) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			switch child.Type() {
			case "identifier", "simple_identifier", "type_identifier", "field_identifier":
				nameNode = child
			}
			if nameNode != nil {
				break
			}
		}
	}
	if nameNode == nil {
		return ""
	}
	name := nameNode.Content(source)
	if IsKeyword(name) {
		return ""
	}
	return name
}
