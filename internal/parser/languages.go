package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// languageDef is one entry in the Bank's extension table: the raw grammar
// pointer, the query this language parses with, and the extensions it
// claims. Adapted from the teacher's setupX methods
// (parser_language_setup.go), extended with call-site and (where the
// grammar makes it tractable) base-class and local-declaration captures
// so the shared engine in treesitter.go can generate usage targets and
// ThisClassDerivedFrom links — scenario S1's inheritance resolution
// depends on the latter for C++.
type languageDef struct {
	extensions []string
	langTag    string
	language   func() *tree_sitter.Language
	queryStr   string
}

func languageDefs() []languageDef {
	return []languageDef{
		{
			extensions: []string{".js", ".jsx"},
			langTag:    "js",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) },
			queryStr: `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (variable_declarator
            name: (identifier) @function.name
            value: [(arrow_function) (function_expression) (generator_function)]) @function
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration name: (identifier) @class.name) @class
        (import_statement source: (string) @import.source) @import
        (call_expression function: (member_expression object: (identifier) @call.object property: (property_identifier) @call.method)) @call
        (call_expression function: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".ts", ".tsx"},
			langTag:    "ts",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
			queryStr: `
        (function_declaration name: (identifier) @function.name) @function
        (method_definition name: (property_identifier) @method.name) @method
        (function_expression name: (identifier) @function.name) @function
        (class_declaration name: (type_identifier) @class.name) @class
        (interface_declaration name: (type_identifier) @interface.name) @interface
        (type_alias_declaration name: (type_identifier) @type.name) @type
        (enum_declaration name: (identifier) @enum.name) @enum
        (import_statement source: (string) @import.source) @import
        (call_expression function: (member_expression object: (identifier) @call.object property: (property_identifier) @call.method)) @call
        (call_expression function: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".go"},
			langTag:    "go",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
			queryStr: `
        (function_declaration name: (identifier) @function.name) @function
        (method_declaration name: (field_identifier) @method.name) @method
        (type_declaration (type_spec name: (type_identifier) @type.name)) @type
        (import_spec path: (interpreted_string_literal) @import.path) @import
        (call_expression function: (selector_expression operand: (identifier) @call.object field: (field_identifier) @call.method)) @call
        (call_expression function: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".py"},
			langTag:    "py",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) },
			queryStr: `
        (class_definition
            body: (block
                (function_definition name: (identifier) @method.name))) @method
        (function_definition name: (identifier) @function.name) @function
        (class_definition name: (identifier) @class.name
            superclasses: (argument_list (identifier) @class.base)?) @class
        (import_statement) @import
        (import_from_statement) @import
        (call function: (attribute object: (identifier) @call.object attribute: (identifier) @call.method)) @call
        (call function: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".rs"},
			langTag:    "rs",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) },
			queryStr: `
        (impl_item
            body: (declaration_list
                (function_item name: (identifier) @method.name))) @method
        (trait_item
            body: (declaration_list
                (function_item name: (identifier) @method.name))) @method
        (function_item name: (identifier) @function.name) @function
        (struct_item name: (type_identifier) @struct.name) @struct
        (enum_item name: (type_identifier) @enum.name) @enum
        (trait_item name: (type_identifier) @interface.name) @interface
        (type_item name: (type_identifier) @type.name) @type
        (use_declaration) @import
        (call_expression function: (field_expression value: (identifier) @call.object field: (field_identifier) @call.method)) @call
        (call_expression function: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp"},
			langTag:    "cpp",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) },
			queryStr: `
        (function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
        (class_specifier name: (type_identifier) @class.name
            (base_class_clause (type_identifier) @class.base)?) @class
        (struct_specifier name: (type_identifier) @struct.name) @struct
        (enum_specifier name: (type_identifier) @enum.name) @enum
        (preproc_include) @import
        (using_declaration) @import
        (declaration type: (type_identifier) @vardecl.type declarator: (identifier) @vardecl.name) @vardecl
        (declaration type: (type_identifier) @vardecl.type declarator: (init_declarator declarator: (identifier) @vardecl.name)) @vardecl
        (call_expression function: (field_expression argument: (identifier) @call.object field: (field_identifier) @call.method)) @call
        (call_expression function: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".java"},
			langTag:    "java",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_java.Language()) },
			queryStr: `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @constructor.name) @constructor
        (class_declaration name: (identifier) @class.name
            superclass: (superclass (type_identifier) @class.base)?) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (enum_declaration name: (identifier) @enum.name) @enum
        (field_declaration type: (type_identifier) @vardecl.type declarator: (variable_declarator name: (identifier) @field.name)) @field
        (local_variable_declaration type: (type_identifier) @vardecl.type declarator: (variable_declarator name: (identifier) @vardecl.name)) @vardecl
        (import_declaration) @import
        (method_invocation object: (identifier) @call.object name: (identifier) @call.method) @call
        (method_invocation name: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".cs"},
			langTag:    "cs",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_csharp.Language()) },
			queryStr: `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @constructor.name) @constructor
        (class_declaration name: (identifier) @class.name
            (base_list (identifier) @class.base)?) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (struct_declaration name: (identifier) @struct.name) @struct
        (enum_declaration name: (identifier) @enum.name) @enum
        (property_declaration name: (identifier) @property.name) @property
        (field_declaration
            (variable_declaration
                (variable_declarator (identifier) @field.name))) @field
        (using_directive (qualified_name) @import.name) @import
        (using_directive (identifier) @import.name) @import
        (delegate_declaration name: (identifier) @delegate.name) @delegate
        (event_field_declaration
            (variable_declaration
                (variable_declarator (identifier) @event.name))) @event
        (invocation_expression function: (member_access_expression expression: (identifier) @call.object name: (identifier) @call.method)) @call
        (invocation_expression function: (identifier) @call.name) @call
    `,
		},
		{
			extensions: []string{".php", ".phtml"},
			langTag:    "php",
			language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()) },
			queryStr: `
        (class_declaration name: (name) @class.name
            (base_clause (name) @class.base)?) @class
        (interface_declaration name: (name) @interface.name) @interface
        (trait_declaration name: (name) @trait.name) @trait
        (enum_declaration name: (name) @enum.name) @enum
        (function_definition name: (name) @function.name) @function
        (method_declaration name: (name) @method.name) @method
        (namespace_use_declaration) @import
        (property_declaration) @property
        (member_call_expression object: (variable_name) @call.object name: (name) @call.method) @call
        (function_call_expression function: (name) @call.name) @call
    `,
		},
	}
}

// newLanguageParsers builds the concrete LanguageParser for every
// supported extension. A grammar whose query fails to compile (the
// tree-sitter Go binding bug noted in the teacher: NewQuery can return a
// typed-nil error) is skipped for that extension rather than aborting
// startup — those extensions simply fall back to nullParser.
func newLanguageParsers() map[string]LanguageParser {
	out := make(map[string]LanguageParser)
	for _, def := range languageDefs() {
		lang := def.language()
		query, _ := tree_sitter.NewQuery(lang, def.queryStr)
		if query == nil {
			continue
		}
		p := newTreeSitterParser(languageSpec{langTag: def.langTag, language: lang, query: query})
		for _, ext := range def.extensions {
			out[ext] = p
		}
	}
	return out
}
