package custody

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is a permission bitmask. Bits are independent and combinable; a
// principal may hold any subset of them.
type Role uint8

const (
	RoleCollector    Role = 1
	RoleMiddleman    Role = 2
	RoleLab          Role = 4
	RoleManufacturer Role = 8

	// AllRoles is the union of every defined permission bit.
	AllRoles = RoleCollector | RoleMiddleman | RoleLab | RoleManufacturer
)

var roleNames = []struct {
	bit  Role
	name string
}{
	{RoleCollector, "collector"},
	{RoleMiddleman, "middleman"},
	{RoleLab, "lab"},
	{RoleManufacturer, "manufacturer"},
}

// Has reports whether any bit of r is present in the mask. Membership is
// always tested with AND so a principal holding several roles passes each
// check independently.
func (m Role) Has(r Role) bool {
	return m&r != 0
}

// With returns the mask with r's bits set.
func (m Role) With(r Role) Role {
	return m | r
}

// Without returns the mask with r's bits cleared.
func (m Role) Without(r Role) Role {
	return m &^ r
}

// Valid reports whether m is a non-empty subset of the defined bits.
func (m Role) Valid() bool {
	return m != 0 && m&^AllRoles == 0
}

// Names lists the role names present in the mask in stage order.
func (m Role) Names() []string {
	names := make([]string, 0, len(roleNames))
	for _, rn := range roleNames {
		if m&rn.bit != 0 {
			names = append(names, rn.name)
		}
	}
	return names
}

func (m Role) String() string {
	if m == 0 {
		return "none"
	}
	names := m.Names()
	if unknown := m &^ AllRoles; unknown != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint8(unknown)))
	}
	return strings.Join(names, "|")
}

// ParseRole accepts a role name ("lab"), a numeric mask ("4", "0x4") or a
// "|" / "," separated combination of either.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}

	var mask Role
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.ToLower(strings.TrimSpace(part))
		bit, ok := roleByName(part)
		if !ok {
			n, err := strconv.ParseUint(part, 0, 8)
			if err != nil {
				return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, part)
			}
			bit = Role(n)
		}
		mask |= bit
	}

	if !mask.Valid() {
		return 0, fmt.Errorf("%w: role mask %d outside %d", ErrInvalidInput, mask, AllRoles)
	}
	return mask, nil
}

// ParseRoles folds several role strings into one mask.
func ParseRoles(values []string) (Role, error) {
	var mask Role
	for _, v := range values {
		r, err := ParseRole(v)
		if err != nil {
			return 0, err
		}
		mask |= r
	}
	if mask == 0 {
		return 0, fmt.Errorf("%w: at least one role is required", ErrInvalidInput)
	}
	return mask, nil
}

func roleByName(name string) (Role, bool) {
	for _, rn := range roleNames {
		if rn.name == name {
			return rn.bit, true
		}
	}
	return 0, false
}
