package table

import (
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// FieldKind is the declared type of a field.
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindText
	KindNumber
	KindSingleSelect
	KindMultiSelect
	KindDateTime
	KindCheckbox
	KindUser
	KindPhone
	KindUrl
	KindAttachment
	KindRating
	KindProgress
)

// Bitable wire codes for each kind.
var kindCodes = map[FieldKind]int{
	KindText:         1,
	KindNumber:       2,
	KindSingleSelect: 3,
	KindMultiSelect:  4,
	KindDateTime:     5,
	KindCheckbox:     7,
	KindUser:         11,
	KindPhone:        13,
	KindUrl:          15,
	KindAttachment:   17,
	KindRating:       19,
	KindProgress:     20,
}

var kindNames = map[FieldKind]string{
	KindUnknown:      "Unknown",
	KindText:         "Text",
	KindNumber:       "Number",
	KindSingleSelect: "SingleSelect",
	KindMultiSelect:  "MultiSelect",
	KindDateTime:     "DateTime",
	KindCheckbox:     "Checkbox",
	KindUser:         "User",
	KindPhone:        "Phone",
	KindUrl:          "Url",
	KindAttachment:   "Attachment",
	KindRating:       "Rating",
	KindProgress:     "Progress",
}

// String returns the UI name of the kind
func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Code returns the Bitable wire code, or 0 for KindUnknown.
func (k FieldKind) Code() int {
	return kindCodes[k]
}

// KindFromCode maps a Bitable wire code to a kind. Unmapped codes are KindUnknown.
func KindFromCode(code int) FieldKind {
	for k, c := range kindCodes {
		if c == code {
			return k
		}
	}
	return KindUnknown
}

// ParseKind accepts either the UI name ("Text", case-insensitive) or the wire code ("1").
func ParseKind(s string) (FieldKind, error) {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		return KindFromCode(code), nil
	}
	for k, name := range kindNames {
		if k != KindUnknown && strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return KindUnknown, errors.Errorf("unknown field kind %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (k FieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *FieldKind) UnmarshalText(b []byte) error {
	kind, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
