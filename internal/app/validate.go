package app

import "strings"

// validateUsername accepts 3 to 20 characters after trimming.
func validateUsername(username string) bool {
	trimmed := strings.TrimSpace(username)
	return len(trimmed) >= 3 && len(trimmed) <= 20
}

// validateEmail requires a local-part and domain name longer than 2
// characters, a non-empty extension, and no whitespace anywhere.
func validateEmail(email string) bool {
	if strings.ContainsAny(email, " \t\n") {
		return false
	}
	at := strings.Split(email, "@")
	if len(at) != 2 || at[0] == "" || at[1] == "" {
		return false
	}
	local, domain := at[0], at[1]
	dot := strings.Split(domain, ".")
	if len(dot) < 2 {
		return false
	}
	// Only the first two labels count, so "xyz..com" has an empty
	// extension and fails.
	domainName, extension := dot[0], dot[1]
	return len(local) > 2 && len(domainName) > 2 && len(extension) > 0
}

// validatePasswords requires a non-empty password matching its confirmation.
func validatePasswords(password, confirm string) bool {
	return password == confirm && len(password) > 0
}
