package report

// Schema is the JSON Schema (Draft 2020-12) for the document written by
// WriteJSON.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/ablizer/ablizer/report.schema.json",
  "title": "ablizer report",
  "type": "object",
  "required": ["version", "reports", "outcomes"],
  "properties": {
    "version": { "type": "string" },
    "reports": {
      "type": "array",
      "items": { "$ref": "#/$defs/Report" }
    },
    "outcomes": { "$ref": "#/$defs/Outcomes" }
  },
  "$defs": {
    "Report": {
      "type": "object",
      "required": [
        "test_name", "method", "conv_rate_a", "conv_rate_b", "difference",
        "p_value", "significant", "alpha", "sample_size_a", "sample_size_b",
        "conversions_a", "conversions_b", "increase_percent", "outcome", "summary"
      ],
      "properties": {
        "test_name": { "type": "string" },
        "metric": { "type": "string" },
        "method": { "enum": ["two_proportion_z_test", "fisher_exact"] },
        "conv_rate_a": { "type": "number", "minimum": 0, "maximum": 1 },
        "conv_rate_b": { "type": "number", "minimum": 0, "maximum": 1 },
        "difference": { "type": "number", "minimum": -1, "maximum": 1 },
        "p_value": { "type": "number", "minimum": 0, "maximum": 1 },
        "significant": { "type": "boolean" },
        "alpha": { "type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1 },
        "sample_size_a": { "type": "integer", "minimum": 1 },
        "sample_size_b": { "type": "integer", "minimum": 1 },
        "conversions_a": { "type": "integer", "minimum": 0 },
        "conversions_b": { "type": "integer", "minimum": 0 },
        "ci_95": {
          "type": "array",
          "items": { "type": "number" },
          "minItems": 2,
          "maxItems": 2
        },
        "standard_deviation": { "type": "number" },
        "increase_percent": { "type": "number" },
        "outcome": { "enum": ["winning", "losing", "other"] },
        "summary": { "type": "string" }
      },
      "if": { "properties": { "method": { "const": "two_proportion_z_test" } } },
      "then": { "required": ["ci_95", "standard_deviation"] },
      "else": {
        "not": {
          "anyOf": [
            { "required": ["ci_95"] },
            { "required": ["standard_deviation"] }
          ]
        }
      }
    },
    "Outcomes": {
      "type": "object",
      "required": ["winning", "losing", "other", "winning_percent", "losing_percent", "other_percent"],
      "properties": {
        "winning": { "type": "integer", "minimum": 0 },
        "losing": { "type": "integer", "minimum": 0 },
        "other": { "type": "integer", "minimum": 0 },
        "winning_percent": { "type": "number", "minimum": 0, "maximum": 100 },
        "losing_percent": { "type": "number", "minimum": 0, "maximum": 100 },
        "other_percent": { "type": "number", "minimum": 0, "maximum": 100 }
      }
    }
  }
}`
