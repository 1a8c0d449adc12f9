package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Stored rule type discriminators. The set is closed: decoding any other
// value fails with *UnknownTypeError.
const (
	TypeAllow  = "AllowRule"
	TypeDeny   = "DenyRule"
	TypeReject = "RejectRule"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Record is the persisted form of a Rule.
type Record struct {
	ID        string     `json:"id" validate:"required,uuid"`
	Direction string     `json:"direction" validate:"required,oneof=IN OUT FORWARD"`
	Protocol  string     `json:"protocol" validate:"required,oneof=TCP UDP ICMP"`
	Port      RecordPort `json:"port"`
	Active    bool       `json:"active"`
	Type      string     `json:"type" validate:"required"`
}

// RecordPort is a nullable port. It decodes from a JSON string, a JSON
// number (older files stored integers) or null.
type RecordPort struct {
	Value string
	Valid bool
}

func (p RecordPort) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

func (p *RecordPort) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = RecordPort{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = RecordPort{Value: s, Valid: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("port must be a string, number or null: %w", err)
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("port must be an integer: %w", err)
	}
	*p = RecordPort{Value: strconv.FormatInt(i, 10), Valid: true}
	return nil
}

func typeForAction(a Action) string {
	switch a {
	case ActionDeny:
		return TypeDeny
	case ActionReject:
		return TypeReject
	default:
		return TypeAllow
	}
}

func actionForType(t string) (Action, error) {
	switch t {
	case TypeAllow:
		return ActionAllow, nil
	case TypeDeny:
		return ActionDeny, nil
	case TypeReject:
		return ActionReject, nil
	}
	return "", &UnknownTypeError{Type: t}
}

// RecordOf converts a Rule to its persisted form.
func RecordOf(r *Rule) Record {
	rec := Record{
		ID:        r.ID.String(),
		Direction: string(r.Direction),
		Protocol:  string(r.Protocol),
		Active:    r.Active,
		Type:      typeForAction(r.Action),
	}
	if r.Port.IsSet() {
		rec.Port = RecordPort{Value: r.Port.String(), Valid: true}
	}
	return rec
}

// Rule validates the record and converts it back into a Rule.
func (rec Record) Rule() (*Rule, error) {
	action, err := actionForType(rec.Type)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid rule record: %w", err)
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, &ValidationError{Field: "id", Value: rec.ID, Reason: err.Error()}
	}
	return Restore(id, Direction(rec.Direction), Protocol(rec.Protocol), rec.Port.Value, action, rec.Active)
}

func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(RecordOf(r))
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	decoded, err := rec.Rule()
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// EncodeRecords renders a rule collection as an indented JSON array.
func EncodeRecords(rs []*Rule) ([]byte, error) {
	recs := make([]Record, 0, len(rs))
	for _, r := range rs {
		recs = append(recs, RecordOf(r))
	}
	return json.MarshalIndent(recs, "", "  ")
}

// DecodeRecords parses a JSON array of rule records. A document that is not
// a JSON array fails as a whole. Individual records that cannot be decoded,
// or that repeat an id already seen, are dropped and reported in dropped.
func DecodeRecords(data []byte) (decoded []*Rule, dropped []error, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse rule records: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(raw))
	decoded = make([]*Rule, 0, len(raw))
	for i, item := range raw {
		var r Rule
		if err := json.Unmarshal(item, &r); err != nil {
			dropped = append(dropped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if seen[r.ID] {
			dropped = append(dropped, fmt.Errorf("record %d: duplicate id %s", i, r.ID))
			continue
		}
		seen[r.ID] = true
		decoded = append(decoded, &r)
	}
	return decoded, dropped, nil
}
