package commands

// RoleModerator is the only role this bot knows about.
const RoleModerator = "moderator"

// PermissionTable maps a command token to the roles allowed to run it.
// A token without an entry is open to everyone.
type PermissionTable map[string][]string

// ModeratorSet holds moderator channel ids.
type ModeratorSet map[string]struct{}

func NewModeratorSet(ids []string) ModeratorSet {
	s := make(ModeratorSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s ModeratorSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// HasPermission reports whether userID may run token.
func HasPermission(userID, token string, table PermissionTable, mods ModeratorSet) bool {
	required, ok := table[token]
	if !ok {
		return true
	}
	roles := map[string]bool{}
	if mods.Contains(userID) {
		roles[RoleModerator] = true
	}
	for _, r := range required {
		if roles[r] {
			return true
		}
	}
	return false
}
