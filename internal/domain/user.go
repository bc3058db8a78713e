package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	fieldReferralCode     = "referralCode"
	fieldReferrals        = "referrals"
	fieldReferralEarnings = "referralEarnings"
	fieldMultiplier       = "multiplier"
)

// User is the record held as the current user. The known fields are typed;
// any other member of the JSON object lands in Extra.
type User struct {
	ReferralCode     *string
	Referrals        *int
	ReferralEarnings *float64
	Multiplier       *float64
	Extra            map[string]any
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Clone copies the record. Extra values are shared, only the map is new.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := &User{
		ReferralCode:     clonePtr(u.ReferralCode),
		Referrals:        clonePtr(u.Referrals),
		ReferralEarnings: clonePtr(u.ReferralEarnings),
		Multiplier:       clonePtr(u.Multiplier),
	}
	if u.Extra != nil {
		out.Extra = make(map[string]any, len(u.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Merge overlays the set fields of patch onto u.
func (u *User) Merge(patch *User) {
	if u == nil || patch == nil {
		return
	}
	if patch.ReferralCode != nil {
		u.ReferralCode = clonePtr(patch.ReferralCode)
	}
	if patch.Referrals != nil {
		u.Referrals = clonePtr(patch.Referrals)
	}
	if patch.ReferralEarnings != nil {
		u.ReferralEarnings = clonePtr(patch.ReferralEarnings)
	}
	if patch.Multiplier != nil {
		u.Multiplier = clonePtr(patch.Multiplier)
	}
	if len(patch.Extra) > 0 && u.Extra == nil {
		u.Extra = make(map[string]any, len(patch.Extra))
	}
	for k, v := range patch.Extra {
		u.Extra[k] = v
	}
}

func (u *User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+4)
	for k, v := range u.Extra {
		out[k] = v
	}
	setIfPresent(out, fieldReferralCode, u.ReferralCode)
	setIfPresent(out, fieldReferrals, u.Referrals)
	setIfPresent(out, fieldReferralEarnings, u.ReferralEarnings)
	setIfPresent(out, fieldMultiplier, u.Multiplier)
	return json.Marshal(out)
}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("decode user: expected object")
	}

	var decoded User
	for key, value := range raw {
		var err error
		switch key {
		case fieldReferralCode:
			decoded.ReferralCode, err = decodeOptional[string](value)
		case fieldReferrals:
			decoded.Referrals, err = decodeOptional[int](value)
		case fieldReferralEarnings:
			decoded.ReferralEarnings, err = decodeOptional[float64](value)
		case fieldMultiplier:
			decoded.Multiplier, err = decodeOptional[float64](value)
		default:
			var v any
			err = json.Unmarshal(value, &v)
			if err == nil {
				if decoded.Extra == nil {
					decoded.Extra = make(map[string]any)
				}
				decoded.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("decode user field %s: %w", key, err)
		}
	}

	*u = decoded
	return nil
}

func decodeOptional[T any](raw json.RawMessage) (*T, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// setIfPresent writes a typed field over any same-named extra. An unset field
// leaves the extra in place.
func setIfPresent[T any](out map[string]any, key string, v *T) {
	if v != nil {
		out[key] = *v
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
