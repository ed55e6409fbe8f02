package workspace

// TaxIdentity is the bidder's fiscal identity (Constancia de Situación Fiscal).
type TaxIdentity struct {
	RFC            Text `json:"rfc,omitempty"`
	LegalName      Text `json:"razon_social,omitempty"`
	Representative Text `json:"representante_legal,omitempty"`
	Address        Text `json:"domicilio,omitempty"`
	PersonType     Text `json:"tipo_persona,omitempty"`
	TaxRegime      Text `json:"regimen_fiscal,omitempty"`
	Role           Text `json:"cargo,omitempty"`
}

// Empty reports whether no field is set.
func (t *TaxIdentity) Empty() bool {
	return t == nil || *t == TaxIdentity{}
}

// CorporateAct is the bidder's constitutive act and legal representation.
type CorporateAct struct {
	LegalName           Text `json:"razon_social,omitempty"`
	DeedNumber          Text `json:"escritura_numero,omitempty"`
	Representative      Text `json:"representante,omitempty"`
	LegalRepresentative Text `json:"representante_legal,omitempty"`
	Role                Text `json:"cargo,omitempty"`
}

// Empty reports whether no field is set.
func (c *CorporateAct) Empty() bool {
	return c == nil || *c == CorporateAct{}
}

// RepresentativeName returns the representative, preferring the explicit
// legal representative field.
func (c *CorporateAct) RepresentativeName() Text {
	if !c.LegalRepresentative.Empty() {
		return c.LegalRepresentative
	}
	return c.Representative
}
