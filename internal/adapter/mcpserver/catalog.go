package mcpserver

// ToolDef describes one entry of the Figma tool catalog: the method name the
// plugin executes, its MCP description, and the JSON Schema its arguments
// must satisfy. The bridge itself never interprets these; they are validated
// here and passed through untouched.
type ToolDef struct {
	Name        string
	Description string
	Schema      string
}

const emptyObjectSchema = `{"type":"object","properties":{},"required":[]}`

// paintValueSchema describes a solid color or gradient. Shared by the fill
// and stroke tools.
const paintValueSchema = `{
	"type": "object",
	"description": "Color or gradient object",
	"properties": {
		"type": {
			"type": "string",
			"enum": ["SOLID", "GRADIENT_LINEAR", "GRADIENT_RADIAL", "GRADIENT_ANGULAR", "GRADIENT_DIAMOND"],
			"description": "Specifies the type of value being provided."
		},
		"color": {
			"type": "object",
			"properties": {
				"r": {"type": "number", "description": "Red component of the color (0-1)"},
				"g": {"type": "number", "description": "Green component of the color (0-1)"},
				"b": {"type": "number", "description": "Blue component of the color (0-1)"},
				"a": {"type": "number", "description": "Alpha component of the color (0-1, optional)", "default": 1}
			},
			"required": ["r", "g", "b"],
			"description": "Solid color definition (required when value.type is 'SOLID')"
		},
		"gradientStops": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"color": {
						"type": "object",
						"properties": {
							"r": {"type": "number"},
							"g": {"type": "number"},
							"b": {"type": "number"},
							"a": {"type": "number"}
						},
						"required": ["r", "g", "b", "a"]
					},
					"position": {"type": "number"}
				},
				"required": ["color", "position"]
			},
			"description": "Array of color stops (required for gradient types)"
		},
		"gradientTransform": {
			"type": "array",
			"items": {
				"type": "array",
				"items": {"type": "number"},
				"minItems": 3,
				"maxItems": 3
			},
			"minItems": 2,
			"maxItems": 2,
			"description": "2x3 affine transformation matrix for the gradient"
		}
	},
	"allOf": [
		{
			"if": {"properties": {"type": {"const": "SOLID"}}},
			"then": {"required": ["color"]}
		},
		{
			"if": {"properties": {"type": {"pattern": "^GRADIENT"}}},
			"then": {"required": ["gradientStops", "gradientTransform"]}
		}
	]
}`

// paintToolSchema wraps paintValueSchema for the set-fill-color and
// set-stroke-color tools: either a literal value or a style reference.
const paintToolSchema = `{
	"type": "object",
	"properties": {
		"value": ` + paintValueSchema + `,
		"styleId": {"type": "string", "description": "ID of the color style to apply (optional)"}
	},
	"required": [],
	"anyOf": [{"required": ["value"]}, {"required": ["styleId"]}]
}`

const effectToolSchema = `{
	"type": "object",
	"properties": {
		"value": {
			"type": "object",
			"description": "Effect object",
			"properties": {
				"type": {
					"type": "string",
					"enum": ["INNER_SHADOW", "DROP_SHADOW", "LAYER_BLUR", "BACKGROUND_BLUR"],
					"description": "Type of the effect"
				},
				"radius": {"type": "number", "description": "Radius of the effect"},
				"color": {
					"type": "object",
					"properties": {
						"r": {"type": "number"},
						"g": {"type": "number"},
						"b": {"type": "number"},
						"a": {"type": "number"}
					},
					"required": ["r", "g", "b", "a"],
					"description": "Color of the effect (for shadow effects)"
				},
				"offset": {
					"type": "object",
					"properties": {
						"x": {"type": "number"},
						"y": {"type": "number"}
					},
					"required": ["x", "y"],
					"description": "Offset of the effect (for shadow effects)"
				},
				"spread": {"type": "number", "description": "Spread of the shadow (for drop shadow effect)"},
				"visible": {"type": "boolean", "description": "Visibility of the effect"},
				"blendMode": {
					"type": "string",
					"enum": ["NORMAL", "DARKEN", "MULTIPLY", "COLOR_BURN", "LIGHTEN", "SCREEN", "COLOR_DODGE", "OVERLAY", "SOFT_LIGHT", "HARD_LIGHT", "DIFFERENCE", "EXCLUSION", "HUE", "SATURATION", "COLOR", "LUMINOSITY"],
					"description": "Blend mode of the effect (for shadow effects)"
				}
			},
			"required": ["type", "radius"],
			"allOf": [
				{
					"if": {"properties": {"type": {"enum": ["INNER_SHADOW", "DROP_SHADOW"]}}},
					"then": {"required": ["color", "offset", "blendMode"]}
				},
				{
					"if": {"properties": {"type": {"const": "DROP_SHADOW"}}},
					"then": {"required": ["spread"]}
				}
			]
		}
	},
	"required": ["value"]
}`

// Catalog returns the full Figma tool catalog.
func Catalog() []ToolDef {
	return []ToolDef{
		{
			Name:        "get-selection",
			Description: "Get information about the currently selected nodes",
			Schema:      emptyObjectSchema,
		},
		{
			Name:        "get-selection-details",
			Description: "Get detailed information about selected nodes including children, constraints, and layout properties",
			Schema:      emptyObjectSchema,
		},
		{
			Name:        "create-rectangle",
			Description: "Create a rectangle in Figma",
			Schema: `{
				"type": "object",
				"properties": {
					"x": {"type": "number", "description": "X coordinate of the rectangle"},
					"y": {"type": "number", "description": "Y coordinate of the rectangle"},
					"width": {"type": "number", "description": "Width of the rectangle"},
					"height": {"type": "number", "description": "Height of the rectangle"}
				},
				"required": []
			}`,
		},
		{
			Name:        "create-text",
			Description: "Create a text element in Figma",
			Schema: `{
				"type": "object",
				"properties": {
					"x": {"type": "number", "description": "X coordinate of the text"},
					"y": {"type": "number", "description": "Y coordinate of the text"},
					"text": {"type": "string", "description": "Text content"}
				},
				"required": []
			}`,
		},
		{
			Name:        "get-color-styles",
			Description: "Get a list of all color styles in the document",
			Schema:      emptyObjectSchema,
		},
		{
			Name:        "create-color-style",
			Description: "Create or update a color style",
			Schema: `{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Name of the color style"},
					"color": {
						"type": "object",
						"description": "RGB color object",
						"properties": {
							"r": {"type": "number"},
							"g": {"type": "number"},
							"b": {"type": "number"}
						},
						"required": ["r", "g", "b"]
					}
				},
				"required": ["name", "color"]
			}`,
		},
		{
			Name:        "export-selection",
			Description: "Export the currently selected node",
			Schema: `{
				"type": "object",
				"properties": {
					"format": {"type": "string", "description": "Export format (PNG, JPG, SVG, PDF)"},
					"scale": {"type": "number", "description": "Export scale (optional, default 1)"}
				},
				"required": ["format"]
			}`,
		},
		{
			Name:        "set-fill-color",
			Description: "Set fill color or gradient for the selected node",
			Schema:      paintToolSchema,
		},
		{
			Name:        "set-stroke-color",
			Description: "Set stroke color or gradient for the selected node",
			Schema:      paintToolSchema,
		},
		{
			Name:        "set-stroke-weight",
			Description: "Set stroke weight for the selected node",
			Schema: `{
				"type": "object",
				"properties": {
					"value": {"type": "number", "description": "Stroke weight number"}
				},
				"required": ["value"]
			}`,
		},
		{
			Name:        "set-effect",
			Description: "Set effect for the selected node",
			Schema:      effectToolSchema,
		},
		{
			Name:        "figma-ping",
			Description: "Ping the Figma plugin to check its status",
			Schema: `{
				"type": "object",
				"properties": {
					"message": {"type": "string", "description": "Message to send with the ping"},
					"timestamp": {"type": "string", "description": "Timestamp of the ping"}
				},
				"required": []
			}`,
		},
	}
}
