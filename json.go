package gldf

import (
	"encoding/json"
	"fmt"
)

// ParseProductJSON parses the JSON form of a product. Field names and
// nesting mirror the Product model one-to-one, so a document that went
// through the JSON form re-serializes to the same XML as the original.
func ParseProductJSON(data []byte, opts ...ReadOption) (*Product, error) {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if uint64(len(data)) > cfg.limits.MaxJSONSize {
		return nil, fmt.Errorf("%w: product json is %d bytes", ErrLimitExceeded, len(data))
	}

	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	p.normalize()
	if err := checkListLimits(&p, cfg.limits); err != nil {
		return nil, err
	}
	if cfg.strictRefs {
		if problems := CheckReferences(&p); len(problems) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, problems[0])
		}
	}
	return &p, nil
}

// MarshalProductJSON serializes a Product as compact JSON. Absent optional
// fields are omitted entirely, never written as null, keeping the XML and
// JSON forms symmetric.
func MarshalProductJSON(p *Product) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: product is nil", ErrValidation)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return b, nil
}

// MarshalProductJSONIndent serializes a Product as pretty-printed JSON.
func MarshalProductJSONIndent(p *Product) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: product is nil", ErrValidation)
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return b, nil
}
