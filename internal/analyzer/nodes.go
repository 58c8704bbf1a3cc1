package analyzer

// Tree-sitter HTML node types.
const (
	htmlNodeDocument             = "document"
	htmlNodeElement              = "element"
	htmlNodeStartTag             = "start_tag"
	htmlNodeSelfClosing          = "self_closing_tag"
	htmlNodeTagName              = "tag_name"
	htmlNodeScriptElement        = "script_element"
	htmlNodeRawText              = "raw_text"
	htmlNodeAttribute            = "attribute"
	htmlNodeAttributeName        = "attribute_name"
	htmlNodeAttributeValue       = "attribute_value"
	htmlNodeQuotedAttributeValue = "quoted_attribute_value"
)

// Tree-sitter JavaScript node types.
const (
	jsNodeProgram              = "program"
	jsNodeStatementBlock       = "statement_block"
	jsNodeCallExpression       = "call_expression"
	jsNodeAssignmentExpression = "assignment_expression"
	jsNodeVariableDeclarator   = "variable_declarator"
	jsNodeObject               = "object"
	jsNodeArray                = "array"
	jsNodePair                 = "pair"
	jsNodeString               = "string"
	jsNodeTemplateString       = "template_string"
	jsNodeIdentifier           = "identifier"
	jsNodeMemberExpression     = "member_expression"
	jsNodeTrue                 = "true"
	jsNodeClassDeclaration     = "class_declaration"
	jsNodeClass                = "class"
	jsNodeClassBody            = "class_body"
	jsNodeMethodDefinition     = "method_definition"
	jsNodeFieldDefinition      = "field_definition"
	jsNodeReturnStatement      = "return_statement"
	jsNodeComment              = "comment"
	jsNodeStatic               = "static"
	jsNodeGet                  = "get"
)
