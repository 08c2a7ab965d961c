// internal/common/validation/requests.go
package validation

// DiscoveryRequestSchema describes the body accepted by buffered endpoints.
const DiscoveryRequestSchema = `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "minLength": 1, "maxLength": 4000},
    "location": {"type": "string", "maxLength": 200},
    "county": {"type": "string", "maxLength": 200},
    "urgencyLevel": {"type": "string", "enum": ["immediate", "urgent", "moderate", "informational"]},
    "resourceType": {"type": "string", "maxLength": 100},
    "previousContext": {
      "type": "array",
      "maxItems": 100,
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role": {"type": "string", "enum": ["user", "assistant"]},
          "content": {"type": "string"}
        }
      }
    }
  }
}`

// ChatRequestSchema describes the messages-style body accepted by streaming endpoints.
const ChatRequestSchema = `{
  "type": "object",
  "required": ["messages"],
  "properties": {
    "messages": {
      "type": "array",
      "minItems": 1,
      "maxItems": 100,
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role": {"type": "string", "enum": ["user", "assistant"]},
          "content": {"type": "string"}
        }
      }
    },
    "location": {"type": "string", "maxLength": 200},
    "county": {"type": "string", "maxLength": 200}
  }
}`

var (
	DiscoveryRequest = MustCompile(DiscoveryRequestSchema)
	ChatRequest      = MustCompile(ChatRequestSchema)
)
