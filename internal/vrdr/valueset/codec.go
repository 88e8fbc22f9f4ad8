package valueset

import (
	"bytes"
	"encoding/json"
)

// coded is the wire form of an enumeration value: {"code": ..., "text": ...}.
// Decoding prefers the code and falls back to the text; a bare JSON string is
// treated as text.
type coded struct {
	Code string `json:"code,omitempty"`
	Text string `json:"text,omitempty"`
}

func marshalCoded[T ~int](t *table[T], v T) ([]byte, error) {
	c, err := t.concept(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(coded{Code: c.Code, Text: c.Display})
}

func unmarshalCoded[T ~int](t *table[T], data []byte) (T, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return 0, err
		}
		return t.parse(text)
	}
	var c coded
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, err
	}
	if c.Code != "" {
		return t.fromCode(c.Code)
	}
	return t.parse(c.Text)
}

func (v YesNo) MarshalJSON() ([]byte, error) { return marshalCoded(yesNo, v) }

func (v *YesNo) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(yesNo, data)
	return err
}

func (v MannerOfDeath) MarshalJSON() ([]byte, error) { return marshalCoded(mannerOfDeath, v) }

func (v *MannerOfDeath) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(mannerOfDeath, data)
	return err
}

func (v PregnancyStatus) MarshalJSON() ([]byte, error) { return marshalCoded(pregnancyStatus, v) }

func (v *PregnancyStatus) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(pregnancyStatus, data)
	return err
}

func (v TransportationRole) MarshalJSON() ([]byte, error) {
	return marshalCoded(transportationRole, v)
}

func (v *TransportationRole) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(transportationRole, data)
	return err
}

func (v TobaccoUse) MarshalJSON() ([]byte, error) { return marshalCoded(tobaccoUse, v) }

func (v *TobaccoUse) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(tobaccoUse, data)
	return err
}

func (v EducationLevel) MarshalJSON() ([]byte, error) { return marshalCoded(educationLevel, v) }

func (v *EducationLevel) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(educationLevel, data)
	return err
}

func (v DispositionMethod) MarshalJSON() ([]byte, error) {
	return marshalCoded(dispositionMethod, v)
}

func (v *DispositionMethod) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(dispositionMethod, data)
	return err
}

func (v PlaceOfDeathType) MarshalJSON() ([]byte, error) {
	return marshalCoded(placeOfDeathType, v)
}

func (v *PlaceOfDeathType) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(placeOfDeathType, data)
	return err
}

func (v MaritalStatus) MarshalJSON() ([]byte, error) { return marshalCoded(maritalStatus, v) }

func (v *MaritalStatus) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(maritalStatus, data)
	return err
}

func (v BirthSex) MarshalJSON() ([]byte, error) { return marshalCoded(birthSex, v) }

func (v *BirthSex) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalCoded(birthSex, data)
	return err
}
