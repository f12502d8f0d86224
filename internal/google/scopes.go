package google

// DefaultScopes are the Google OAuth scopes the app requests when connecting
// an account.
//
// The scopes provide access to:
//   - Gmail: read, modify, send
//   - Google Calendar: event lookup and RSVP
//   - Contacts: read-only (including other contacts)
var DefaultScopes = []string{
	// OpenID Connect scopes (required for resolving the account email)
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	// Gmail scopes
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.send",

	// Google Calendar scope
	"https://www.googleapis.com/auth/calendar.events",

	// Contacts scopes
	"https://www.googleapis.com/auth/contacts.readonly",
	"https://www.googleapis.com/auth/contacts.other.readonly",
}
