package vault

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TypeString = "STRING"
	TypeInt    = "INT"
	TypeFloat  = "FLOAT"

	MethodFormatPreserving = "FORMAT_PRESERVING"
	MethodRandom           = "RANDOM"

	ActionDeidentify = "DEIDENTIFY"
	ActionReidentify = "REIDENTIFY"
)

// TokenRecord is the persisted shape of a token. An identity is stored as a
// TokenRecord whose value is the subject's raw identity and whose token
// equals its own identity_token.
type TokenRecord struct {
	PK            string    `gorm:"primaryKey;column:pk" json:"pk"`
	Identifier    string    `gorm:"column:identifier;index:idx_vault_subject" json:"identifier"`
	Identity      string    `gorm:"column:identity;index:idx_vault_subject" json:"identity"`
	IdentityToken string    `gorm:"column:identity_token;index" json:"identity_token"`
	Value         string    `gorm:"column:value" json:"value"`
	Token         string    `gorm:"column:token" json:"token"`
	Type          string    `gorm:"column:type" json:"type"`
	Field         string    `gorm:"column:field" json:"field"`
	Method        string    `gorm:"column:method" json:"method"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TokenRecord) TableName() string {
	return "vault_tokens"
}

// Typed maps the stored record to its API shape, parsing token and value
// into the declared type so numeric comparisons round-trip. Values that do
// not parse are returned as stored.
func (r TokenRecord) Typed() Token {
	t := Token{
		PK:            r.PK,
		Identifier:    r.Identifier,
		Identity:      r.Identity,
		IdentityToken: r.IdentityToken,
		Value:         r.Value,
		Token:         r.Token,
		Type:          r.Type,
		Field:         r.Field,
		Method:        r.Method,
		CreatedAt:     r.CreatedAt,
	}
	switch r.Type {
	case TypeInt:
		t.Value = parseTyped(r.Value, parseInt)
		t.Token = parseTyped(r.Token, parseInt)
	case TypeFloat:
		t.Value = parseTyped(r.Value, parseFloat)
		t.Token = parseTyped(r.Token, parseFloat)
	}
	return t
}

// Token is the API view of a record; value and token carry the declared type.
type Token struct {
	PK            string      `json:"pk"`
	Identifier    string      `json:"identifier"`
	Identity      string      `json:"identity"`
	IdentityToken string      `json:"identity_token"`
	Value         interface{} `json:"value"`
	Token         interface{} `json:"token"`
	Type          string      `json:"type"`
	Field         string      `json:"field"`
	Method        string      `json:"method"`
	CreatedAt     time.Time   `json:"created_at"`
}

type TokenCreate struct {
	PK         string    `json:"pk,omitempty"`
	Identifier string    `json:"identifier"`
	Identity   string    `json:"identity"`
	Value      string    `json:"value"`
	Type       string    `json:"type"`
	Field      string    `json:"field"`
	Method     string    `json:"method"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

type TokenFind struct {
	Identifier    string `json:"identifier"`
	IdentityToken string `json:"identity_token"`
	Token         string `json:"token"`
	Field         string `json:"field"`
}

// UserDefinedContext selects what a batch does. TokenType applies to
// DEIDENTIFY only.
type UserDefinedContext struct {
	Action    string `json:"action"`
	TokenType string `json:"tokenType"`
}

// TokenCall is one entry in a batch. On the wire it is a positional array of
// three or four scalars: [identifier, identity-or-identity-token,
// value-or-token, field?].
type TokenCall struct {
	Identifier string
	Subject    string
	Value      string
	Field      string

	hasField bool
}

func (c *TokenCall) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 3 || len(raw) > 4 {
		return fmt.Errorf("call must have 3 or 4 elements, got %d", len(raw))
	}
	parts := make([]string, len(raw))
	for i, elem := range raw {
		parts[i] = scalarString(elem)
	}
	c.Identifier, c.Subject, c.Value = parts[0], parts[1], parts[2]
	if len(parts) == 4 {
		c.Field = parts[3]
		c.hasField = true
	} else {
		c.Field = ""
		c.hasField = false
	}
	return nil
}

func (c TokenCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.components())
}

// components returns the elements as received; primary keys for batch calls
// are derived from exactly these, so a three-element call must not grow a
// fourth component.
func (c TokenCall) components() []string {
	if c.hasField {
		return []string{c.Identifier, c.Subject, c.Value, c.Field}
	}
	return []string{c.Identifier, c.Subject, c.Value}
}

// scalarString stringifies a JSON scalar the way the key contract expects:
// strings unquoted, numbers as their literal text, null as empty.
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

type RemoteFunctionRequest struct {
	RequestID          string             `json:"requestId"`
	Caller             string             `json:"caller"`
	SessionUser        string             `json:"sessionUser"`
	UserDefinedContext UserDefinedContext `json:"userDefinedContext"`
	Calls              []TokenCall        `json:"calls"`
}

// RemoteFunctionResponse carries one reply per call, in call order. A nil
// reply marks a REIDENTIFY miss.
type RemoteFunctionResponse struct {
	Replies []interface{} `json:"replies"`
}

func parseInt(s string) (interface{}, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func parseFloat(s string) (interface{}, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseTyped(s string, parse func(string) (interface{}, bool)) interface{} {
	if v, ok := parse(s); ok {
		return v
	}
	return s
}
