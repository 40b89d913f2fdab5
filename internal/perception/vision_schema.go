package perception

// visionSchema is the response schema enforced on the extraction call.
// Every fact carries its own confidence so the reconciliation gates can
// act per field rather than per response. Fact shapes are inlined because
// the Gemini schema dialect does not resolve $ref.
const visionSchema = `{
  "type": "object",
  "properties": {
    "make": {
      "type": "object",
      "properties": {"value": {"type": "string"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "model": {
      "type": "object",
      "properties": {"value": {"type": "string"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "trim": {
      "type": "object",
      "properties": {"value": {"type": "string"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "drivetrain": {
      "type": "object",
      "properties": {"value": {"type": "string"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "color": {
      "type": "object",
      "properties": {"value": {"type": "string"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "material": {
      "type": "object",
      "properties": {"value": {"type": "string"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "condition": {
      "type": "object",
      "properties": {"value": {"type": "string"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "year": {
      "type": "object",
      "properties": {"value": {"type": "integer"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "mileage": {
      "type": "object",
      "properties": {"value": {"type": "integer"}, "confidence": {"type": "number"}},
      "required": ["value", "confidence"]
    },
    "features": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "present": {"type": "boolean"},
          "confidence": {"type": "number"}
        },
        "required": ["name", "present", "confidence"]
      }
    },
    "condition_notes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "note": {"type": "string"},
          "confidence": {"type": "number"}
        },
        "required": ["note", "confidence"]
      }
    },
    "badge_tokens": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["make", "model", "year", "mileage", "features"]
}`
