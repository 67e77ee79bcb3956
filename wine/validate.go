package wine

import (
	"encoding/json"
	"fmt"
	"strings"
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every attribute that failed validation, in
// FeatureNames order.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid sample fields: " + strings.Join(names, ", ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// ParseSample decodes a request body into a Sample. Every attribute must be
// present and a finite JSON number. Integers are fine, numeric strings are
// not, null is not, and keys outside the schema are ignored. Field-level
// failures come back as *ValidationError; a body that is not a JSON object
// at all comes back as a plain error.
func ParseSample(body []byte) (Sample, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Sample{}, fmt.Errorf("body is not a JSON object: %w", err)
	}

	vals := make(map[string]float64, FeatureCount)
	verr := &ValidationError{}
	for _, name := range FeatureNames() {
		rm, ok := raw[name]
		if !ok {
			verr.add(name, "field required")
			continue
		}
		// The raw bytes are a syntactically valid JSON value, so the first
		// byte settles the token type. json.Number is no use here: it
		// accepts quoted numbers, and unmarshalling null into a float64
		// silently keeps the zero value.
		if len(rm) == 0 || !numberToken(rm[0]) {
			verr.add(name, "must be a number")
			continue
		}
		var f float64
		if err := json.Unmarshal(rm, &f); err != nil {
			verr.add(name, "must be a finite number")
			continue
		}
		vals[name] = f
	}
	if len(verr.Fields) > 0 {
		return Sample{}, verr
	}

	return Sample{
		Alcohol:             vals["alcohol"],
		MalicAcid:           vals["malic_acid"],
		Ash:                 vals["ash"],
		AlcalinityOfAsh:     vals["alcalinity_of_ash"],
		Magnesium:           vals["magnesium"],
		TotalPhenols:        vals["total_phenols"],
		Flavanoids:          vals["flavanoids"],
		NonflavanoidPhenols: vals["nonflavanoid_phenols"],
		Proanthocyanins:     vals["proanthocyanins"],
		ColorIntensity:      vals["color_intensity"],
		Hue:                 vals["hue"],
		OD280_OD315:         vals["od280_od315_of_diluted_wines"],
		Proline:             vals["proline"],
	}, nil
}

func numberToken(b byte) bool {
	return b == '-' || (b >= '0' && b <= '9')
}
