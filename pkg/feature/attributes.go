package feature

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Reserved attribute keys recognized during user-scoped evaluation.
const (
	AttrKillSwitch = "KillSwitch"
	AttrEnabled    = "Enabled"
	AttrAllowList  = "AllowList"
	AttrDenyList   = "DenyList"
)

// Attributes is the typed key/value metadata attached to a flag.
// Keys other than the reserved ones are opaque and exposed verbatim.
type Attributes map[string]Value

// KillSwitch returns the KillSwitch attribute. ok is false when the key is
// missing or does not hold a bool.
func (a Attributes) KillSwitch() (active bool, ok bool) {
	return a.boolAttr(AttrKillSwitch)
}

// Enabled returns the Enabled attribute. ok is false when the key is missing
// or does not hold a bool.
func (a Attributes) Enabled() (enabled bool, ok bool) {
	return a.boolAttr(AttrEnabled)
}

// AllowList returns the AllowList attribute.
func (a Attributes) AllowList() ([]string, bool) {
	return a.listAttr(AttrAllowList)
}

// DenyList returns the DenyList attribute.
func (a Attributes) DenyList() ([]string, bool) {
	return a.listAttr(AttrDenyList)
}

// Allows reports whether userID is on the AllowList.
func (a Attributes) Allows(userID string) bool {
	v, ok := a[AttrAllowList]
	return ok && v.Contains(userID)
}

// Denies reports whether userID is on the DenyList.
func (a Attributes) Denies(userID string) bool {
	v, ok := a[AttrDenyList]
	return ok && v.Contains(userID)
}

// Validate checks that reserved keys hold the expected kinds.
func (a Attributes) Validate() error {
	var errs []error
	for _, key := range slices.Sorted(maps.Keys(a)) {
		v := a[key]
		var want Kind
		switch key {
		case AttrKillSwitch, AttrEnabled:
			want = KindBool
		case AttrAllowList, AttrDenyList:
			want = KindStringList
		default:
			if v.Kind() == KindInvalid {
				errs = append(errs, fmt.Errorf("attribute %q: %w", key, ErrInvalidValue))
			}
			continue
		}
		if v.Kind() != want {
			errs = append(errs, fmt.Errorf("attribute %q: %w", key, v.typeError(want)))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of the attributes.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v.clone()
	}
	return out
}

func (a Attributes) boolAttr(key string) (bool, bool) {
	v, exists := a[key]
	if !exists {
		return false, false
	}
	b, err := v.AsBool()
	if err != nil {
		return false, false
	}
	return b, true
}

func (a Attributes) listAttr(key string) ([]string, bool) {
	v, exists := a[key]
	if !exists {
		return nil, false
	}
	list, err := v.AsStringList()
	if err != nil {
		return nil, false
	}
	return list, true
}
