// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidRegistry = errors.New("invalid endpoint registry")

// LoadRegistry reads, schema-checks and validates a registry file.
func LoadRegistry(path string) (*EndpointRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*EndpointRegistry, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registryJSONSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegistry, strings.Join(msgs, "; "))
	}

	var reg EndpointRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks the rules the JSON schema cannot express.
func (r *EndpointRegistry) Validate() error {
	if len(r.Endpoints) == 0 {
		return fmt.Errorf("%w: registry contains no endpoints", ErrInvalidRegistry)
	}

	ids := make(map[string]bool, len(r.Endpoints))
	for _, ep := range r.Endpoints {
		if ep.ID == "" {
			return fmt.Errorf("%w: endpoint missing required field: id", ErrInvalidRegistry)
		}
		if ids[ep.ID] {
			return fmt.Errorf("%w: duplicate endpoint id: %s", ErrInvalidRegistry, ep.ID)
		}
		ids[ep.ID] = true

		if ep.Transport != TransportBuffered && ep.Transport != TransportStream {
			return fmt.Errorf("%w: endpoint %s has unknown transport %q", ErrInvalidRegistry, ep.ID, ep.Transport)
		}
		if ep.RateLimit.Anonymous <= 0 || ep.RateLimit.Authenticated <= 0 || ep.RateLimit.WindowMinutes <= 0 {
			return fmt.Errorf("%w: endpoint %s needs positive rate limits", ErrInvalidRegistry, ep.ID)
		}
		if ep.RateLimit.Authenticated < ep.RateLimit.Anonymous {
			return fmt.Errorf("%w: endpoint %s grants authenticated callers less than anonymous", ErrInvalidRegistry, ep.ID)
		}
		if ep.Catalog.LookupLimit <= 0 || ep.Ranking.PresentationCap <= 0 {
			return fmt.Errorf("%w: endpoint %s needs positive lookup and presentation caps", ErrInvalidRegistry, ep.ID)
		}
		if ep.Ranking.PresentationCap > ep.Catalog.LookupLimit {
			return fmt.Errorf("%w: endpoint %s presents more resources than it looks up", ErrInvalidRegistry, ep.ID)
		}
	}
	return nil
}

// Lookup finds an endpoint by id.
func (r *EndpointRegistry) Lookup(id string) (*Endpoint, bool) {
	for i := range r.Endpoints {
		if r.Endpoints[i].ID == id {
			return &r.Endpoints[i], true
		}
	}
	return nil, false
}

// IDs lists endpoint ids in registry order.
func (r *EndpointRegistry) IDs() []string {
	out := make([]string, 0, len(r.Endpoints))
	for _, ep := range r.Endpoints {
		out = append(out, ep.ID)
	}
	return out
}

// Tagged lists the ids of endpoints carrying tag.
func (r *EndpointRegistry) Tagged(tag string) []string {
	var out []string
	for _, ep := range r.Endpoints {
		for _, t := range ep.Tags {
			if t == tag {
				out = append(out, ep.ID)
				break
			}
		}
	}
	return out
}

// Marshal renders the registry as indented JSON.
func (r *EndpointRegistry) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
