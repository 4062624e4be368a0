package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// JsonNullString 是一個 sql.NullString 的包裝類型，用於自訂 JSON (un)marshalling。
type JsonNullString struct {
	sql.NullString
}

// NewJsonNullString 空字串視為 NULL
func NewJsonNullString(s string) JsonNullString {
	return JsonNullString{sql.NullString{String: s, Valid: s != ""}}
}

// MarshalJSON 為 JsonNullString 實現 json.Marshaler 介面。
func (jns JsonNullString) MarshalJSON() ([]byte, error) {
	if !jns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jns.String)
}

// UnmarshalJSON 為 JsonNullString 實現 json.Unmarshaler 介面。
func (jns *JsonNullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jns.String, jns.Valid = "", false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		jns.String, jns.Valid = "", false
		return fmt.Errorf("JsonNullString: 期望 JSON 字串或 null，但得到 '%s': %w", string(data), err)
	}
	jns.String, jns.Valid = s, true
	return nil
}

// JsonNullTime 同 JsonNullString，包裝 sql.NullTime
type JsonNullTime struct {
	sql.NullTime
}

// NewJsonNullTime 零值時間視為 NULL
func NewJsonNullTime(t time.Time) JsonNullTime {
	return JsonNullTime{sql.NullTime{Time: t, Valid: !t.IsZero()}}
}

func (jnt JsonNullTime) MarshalJSON() ([]byte, error) {
	if !jnt.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jnt.Time)
}

func (jnt *JsonNullTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jnt.Time, jnt.Valid = time.Time{}, false
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		jnt.Time, jnt.Valid = time.Time{}, false
		return fmt.Errorf("JsonNullTime: 期望 RFC3339 時間或 null，但得到 '%s': %w", string(data), err)
	}
	jnt.Time, jnt.Valid = t, true
	return nil
}
