package commands

import "testing"

func TestHasPermission(t *testing.T) {
	table := PermissionTable{
		"!ban":    {RoleModerator},
		"!locked": {},
	}
	mods := NewModeratorSet([]string{"UC_mod", ""})

	tests := []struct {
		name  string
		user  string
		token string
		want  bool
	}{
		{"unlisted token open to all", "UC_viewer", "!link", true},
		{"moderator allowed", "UC_mod", "!ban", true},
		{"viewer denied", "UC_viewer", "!ban", false},
		{"empty role list denies everyone", "UC_mod", "!locked", false},
		{"empty id is never a moderator", "", "!ban", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPermission(tt.user, tt.token, table, mods); got != tt.want {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.user, tt.token, got, tt.want)
			}
		})
	}
}

func TestHasPermissionUnknownRole(t *testing.T) {
	table := PermissionTable{"!secret": {"owner"}}
	mods := NewModeratorSet([]string{"UC_mod"})
	if HasPermission("UC_mod", "!secret", table, mods) {
		t.Error("moderator should not satisfy a role the bot cannot grant")
	}
}
