package user

import "testing"

func TestEffectiveRole(t *testing.T) {
	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{name: "no groups"},
		{name: "unknown groups only", groups: []string{"PUPIL", "STAFF"}},
		{name: "teacher", groups: []string{GroupTeacher}, want: GroupTeacher},
		{name: "admin", groups: []string{GroupAdmin}, want: GroupAdmin},
		{name: "superadmin", groups: []string{GroupSuperAdmin}, want: GroupSuperAdmin},
		{name: "teacher+admin -> admin", groups: []string{GroupTeacher, GroupAdmin}, want: GroupAdmin},
		{name: "all three -> superadmin", groups: []string{GroupTeacher, GroupAdmin, GroupSuperAdmin}, want: GroupSuperAdmin},
		{name: "order does not matter", groups: []string{GroupSuperAdmin, GroupTeacher}, want: GroupSuperAdmin},
		{name: "unknown mixed in", groups: []string{"STAFF", GroupTeacher}, want: GroupTeacher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveRole(tt.groups); got != tt.want {
				t.Errorf("EffectiveRole() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	tests := []struct {
		name    string
		usr     *User
		allowed []string
		want    bool
	}{
		{name: "nil user", allowed: AllGroups},
		{name: "no groups", usr: &User{}, allowed: AllGroups},
		{name: "empty allowed", usr: &User{Groups: []string{GroupAdmin}}},
		{name: "disjoint", usr: &User{Groups: []string{GroupTeacher}}, allowed: AdminGroups},
		{name: "intersects", usr: &User{Groups: []string{GroupTeacher, GroupAdmin}}, allowed: AdminGroups, want: true},
		{name: "exact", usr: &User{Groups: []string{GroupSuperAdmin}}, allowed: []string{GroupSuperAdmin}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAnyRole(tt.usr, tt.allowed); got != tt.want {
				t.Errorf("HasAnyRole() = %v, want %v", got, tt.want)
			}
		})
	}
}
