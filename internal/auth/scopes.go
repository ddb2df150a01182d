package auth

// OAuth scopes accepted by the API.
const (
	ScopeEntriesWrite = "entries:write"
	ScopeEntriesRead  = "entries:read"
)
