// Package acl models the access-control entries attached to albums and photos.
//
// A List is keyed by subject: either a principal id or a role reference of the
// form "role:<name>". Keying by subject makes a List a set of entries, and
// because encoding/json sorts map keys the serialised form of two equal lists
// is byte-identical.
package acl

import (
	"sort"
	"strings"
)

const rolePrefix = "role:"

// Permission is the grant held by one subject.
type Permission struct {
	Read  bool `json:"read,omitempty"`
	Write bool `json:"write,omitempty"`
}

// Entry is one subject/permission pair.
type Entry struct {
	Subject string `json:"subject"`
	Read    bool   `json:"read"`
	Write   bool   `json:"write"`
}

// List is the access-control list of a resource.
type List map[string]Permission

// RoleSubject returns the subject key used for a role grant.
func RoleSubject(roleName string) string {
	return rolePrefix + roleName
}

// RoleName extracts the role name from a role subject.
func RoleName(subject string) (string, bool) {
	if !strings.HasPrefix(subject, rolePrefix) {
		return "", false
	}
	name := strings.TrimPrefix(subject, rolePrefix)
	return name, name != ""
}

// Target builds the entry set every album propagates: the owner and the
// read-write role get read+write, the read role gets read.
func Target(ownerID, readRole, writeRole string) List {
	list := List{}
	if ownerID != "" {
		list[ownerID] = Permission{Read: true, Write: true}
	}
	if readRole != "" {
		list[RoleSubject(readRole)] = Permission{Read: true}
	}
	if writeRole != "" {
		list[RoleSubject(writeRole)] = Permission{Read: true, Write: true}
	}
	return list
}

// Clone returns an independent copy.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Equal reports whether both lists grant exactly the same permissions.
func (l List) Equal(other List) bool {
	if len(l) != len(other) {
		return false
	}
	for k, v := range l {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Entries returns the list as entries sorted by subject.
func (l List) Entries() []Entry {
	out := make([]Entry, 0, len(l))
	for subject, perm := range l {
		out = append(out, Entry{Subject: subject, Read: perm.Read, Write: perm.Write})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

// Roles returns the sorted role names that hold at least the requested access.
func (l List) Roles(write bool) []string {
	var names []string
	for subject, perm := range l {
		name, ok := RoleName(subject)
		if !ok || !perm.grants(write) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllowsPrincipal reports whether the principal holds a direct grant.
func (l List) AllowsPrincipal(principalID string, write bool) bool {
	if principalID == "" {
		return false
	}
	perm, ok := l[principalID]
	return ok && perm.grants(write)
}

func (p Permission) grants(write bool) bool {
	if write {
		return p.Write
	}
	return p.Read || p.Write
}
