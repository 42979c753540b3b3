package guild

// Option applies a configuration option to the Memory guild.
type Option func(*Memory)

// WithRoles registers role names by id. Once any role is registered, unknown
// role ids are rejected by AddRole and RemoveRole.
func WithRoles(names map[string]string) Option {
	return func(m *Memory) {
		for id, name := range names {
			if id != "" {
				m.roles[id] = name
			}
		}
	}
}

// WithStrictMembers makes MemberRoles fail with ErrUnknownMember for members
// that were never seeded or mutated.
func WithStrictMembers() Option {
	return func(m *Memory) {
		m.strict = true
	}
}
