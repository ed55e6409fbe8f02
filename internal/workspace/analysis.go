package workspace

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

const (
	keyTenderNumber = "numero_licitacion"
	keyIssuer       = "convocante"
	keySubject      = "objeto"
	keyPublishedOn  = "fecha_publicacion"
	keyEntityType   = "tipo_entidad"
	keyPortal       = "portal_electronico"
	keyCritical     = "puntos_criticos"
	keyChecklist    = "checklist_cumplimiento"
)

// Analysis is the structured result of analysing a workspace's base
// documents. Known fields are typed; every other field the extraction
// backend produced is kept in Extra and written back unchanged.
type Analysis struct {
	TenderNumber Text
	Issuer       Text
	Subject      Text
	PublishedOn  Text
	EntityType   Text
	Portal       Text
	Critical     *CriticalPoints
	Checklist    []ChecklistItem
	Extra        map[string]json.RawMessage
}

// CriticalPoints are the disqualification-risk rules of a tender.
type CriticalPoints struct {
	AddressedTo       Text   `json:"dirigido_a,omitempty"`
	SignatureRequired Text   `json:"firma_requerida,omitempty"`
	DeliveryPlace     Text   `json:"lugar_entrega,omitempty"`
	Warnings          []Text `json:"advertencias,omitempty"`
}

// Present reports whether any critical point carries a value.
func (c *CriticalPoints) Present() bool {
	if c == nil {
		return false
	}
	return !c.AddressedTo.Empty() || !c.SignatureRequired.Empty() ||
		!c.DeliveryPlace.Empty() || len(c.Warnings) > 0
}

// ChecklistItem is one compliance check derived from the tender rules.
type ChecklistItem struct {
	Point      Text `json:"punto"`
	Risk       Text `json:"motivo_riesgo,omitempty"`
	Prevention Text `json:"accion_preventiva,omitempty"`
	Detected   bool `json:"detectado"`
	Suggested  bool `json:"sugerido"`
	Evidence   Text `json:"evidencia,omitempty"`
}

// Key identifies the item in a workspace's audit checklist.
func (i ChecklistItem) Key() string {
	return strings.ToLower(strings.Join(strings.Fields(i.Point.String()), " "))
}

// HasChecklist reports whether the analysis carries a non-empty checklist.
func (a *Analysis) HasChecklist() bool {
	return a != nil && len(a.Checklist) > 0
}

// Clone returns a deep copy.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	c := *a
	if a.Critical != nil {
		crit := *a.Critical
		crit.Warnings = slices.Clone(a.Critical.Warnings)
		c.Critical = &crit
	}
	c.Checklist = slices.Clone(a.Checklist)
	if a.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(a.Extra))
		for k, v := range a.Extra {
			c.Extra[k] = bytes.Clone(v)
		}
	}
	return &c
}

func (a *Analysis) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Analysis{}
	texts := a.textFields()
	for key, value := range raw {
		if field, ok := texts[key]; ok {
			if err := json.Unmarshal(value, field); err == nil {
				continue
			}
		}
		switch key {
		case keyCritical:
			var crit CriticalPoints
			if err := json.Unmarshal(value, &crit); err == nil {
				if !isNull(value) {
					a.Critical = &crit
				}
				continue
			}
		case keyChecklist:
			var items []ChecklistItem
			if err := json.Unmarshal(value, &items); err == nil {
				a.Checklist = items
				continue
			}
		}
		if a.Extra == nil {
			a.Extra = make(map[string]json.RawMessage)
		}
		a.Extra[key] = value
	}
	return nil
}

func (a Analysis) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+8)
	for k, v := range a.Extra {
		out[k] = v
	}
	for key, field := range a.textFields() {
		if !field.Empty() {
			out[key] = *field
		}
	}
	if a.Critical != nil {
		out[keyCritical] = a.Critical
	}
	if a.Checklist != nil {
		out[keyChecklist] = a.Checklist
	}
	return json.Marshal(out)
}

func (a *Analysis) textFields() map[string]*Text {
	return map[string]*Text{
		keyTenderNumber: &a.TenderNumber,
		keyIssuer:       &a.Issuer,
		keySubject:      &a.Subject,
		keyPublishedOn:  &a.PublishedOn,
		keyEntityType:   &a.EntityType,
		keyPortal:       &a.Portal,
	}
}

// ExtraKeys returns the names of the untyped fields in sorted order.
func (a *Analysis) ExtraKeys() []string {
	return slices.Sorted(maps.Keys(a.Extra))
}

// ExtraText returns an untyped field flattened to text, or "" when the
// field is absent or not decodable.
func (a *Analysis) ExtraText(key string) string {
	raw, ok := a.Extra[key]
	if !ok {
		return ""
	}
	var t Text
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return t.Trim()
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// Profile is the bidder and tender summary sent alongside a base analysis.
type Profile struct {
	Tender struct {
		Issuer       Text `json:"convocante"`
		TenderNumber Text `json:"numero_licitacion"`
		Subject      Text `json:"objeto"`
		PublishedOn  Text `json:"fecha_publicacion"`
	} `json:"tender"`
	Bidder struct {
		Company        Text `json:"empresa"`
		RFC            Text `json:"rfc"`
		Address        Text `json:"domicilio"`
		Representative Text `json:"representante"`
		Role           Text `json:"cargo"`
		LogoPath       Text `json:"logo_path"`
	} `json:"licitante"`
}
