package service

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/courtshare/courtshare/internal/clock"
	"github.com/courtshare/courtshare/internal/model"
)

func isNameSep(r rune) bool { return r == '.' || r == '_' || r == '-' || r == '+' }

// FirstName picks the owner's first name for display.  It prefers the
// first word of the profile name and falls back to the leading part of the
// email's local part ("jane.doe@x" -> "Jane").
func FirstName(u model.User) string {
	if u.Name != nil {
		if f := strings.Fields(*u.Name); len(f) > 0 {
			return f[0]
		}
	}
	local, _, _ := strings.Cut(u.Email, "@")
	parts := strings.FieldsFunc(local, isNameSep)
	if len(parts) == 0 {
		return "Someone"
	}
	// Casers keep state, so each call gets its own.
	return cases.Title(language.English).String(parts[0])
}

// DisplayName is "<First>'s M/D Reservation at <Court>", with the date taken
// in facility-local time.
func DisplayName(f clock.Facility, owner model.User, court model.Court, start time.Time) string {
	return fmt.Sprintf("%s's %s Reservation at %s", FirstName(owner), f.MonthDay(start), court.Name)
}
