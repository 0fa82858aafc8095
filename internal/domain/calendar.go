package domain

// Access roles as reported by the provider for the authenticated account.
const (
	AccessRoleFreeBusyReader = "freeBusyReader"
	AccessRoleReader         = "reader"
	AccessRoleWriter         = "writer"
	AccessRoleOwner          = "owner"
)

// CalendarInfo describes one calendar visible to the account.
type CalendarInfo struct {
	ID         string
	Name       string
	AccessRole string
}

// ReadOnly reports whether the calendar is eligible as a sync source.
// Only calendars the account cannot write to are mirrored.
func (c *CalendarInfo) ReadOnly() bool {
	return c.AccessRole == AccessRoleReader || c.AccessRole == AccessRoleFreeBusyReader
}
