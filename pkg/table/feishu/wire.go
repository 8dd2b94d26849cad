package feishu

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/walteh/bitablerc/pkg/table"
)

// envelope is the common response wrapper of the open API
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type fieldItem struct {
	FieldID   string   `json:"field_id"`
	FieldName string   `json:"field_name"`
	Type      typeCode `json:"type"`
	UIType    string   `json:"ui_type"`
}

// kind treats a field as text when either its type code is 1 or its ui_type is "Text".
func (f fieldItem) kind() table.FieldKind {
	if f.UIType == "Text" {
		return table.KindText
	}
	return table.KindFromCode(int(f.Type))
}

type listFieldsData struct {
	HasMore   bool        `json:"has_more"`
	PageToken string      `json:"page_token"`
	Items     []fieldItem `json:"items"`
}

type recordItem struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

type listRecordsData struct {
	HasMore   bool         `json:"has_more"`
	PageToken string       `json:"page_token"`
	Total     int          `json:"total"`
	Items     []recordItem `json:"items"`
}

type batchUpdateRequest struct {
	Records []recordItem `json:"records"`
}

// typeCode accepts the field type as either a JSON number or a numeric string.
type typeCode int

func (t *typeCode) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*t = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*t = typeCode(n)
	return nil
}
