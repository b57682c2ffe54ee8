package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	minUsernameLength = 3
	maxUsernameLength = 150
	minPasswordLength = 8
	maxPasswordLength = 128
	maxEmailLength    = 255
	maxOrgNameLen     = 200
	maxProjectNameLen = 100
	maxStorytellerLen = 100
	maxTagNameLen     = 100
	maxTagValueLen    = 255
	asciiControlStart = 32
	asciiDelete       = 127

	errUsernameLengthFmt       = "username must be between %d and %d characters"
	errUsernameCharsFmt        = "username may only contain letters, digits and @.+-_"
	errPasswordMinLengthFmt    = "password must be at least %d characters"
	errPasswordMaxLengthFmt    = "password must not exceed %d characters"
	errEmailInvalidFmt         = "invalid email format"
	errOrgNameEmptyFmt         = "organization name is required"
	errOrgNameMaxLengthFmt     = "organization name must not exceed %d characters"
	errProjectNameEmptyFmt     = "project name is required"
	errProjectNameMaxLengthFmt = "project name must not exceed %d characters"
	errStorytellerEmptyFmt     = "storyteller is required"
	errStorytellerMaxLenFmt    = "storyteller must not exceed %d characters"
	errTagNameEmptyFmt         = "tag name cannot be empty"
	errTagNameMaxLengthFmt     = "tag name must not exceed %d characters"
	errTagValueMaxLengthFmt    = "tag value must not exceed %d characters"
	errControlCharsFmt         = "%s cannot contain control characters"
	errDateFormatFmt           = "date must use the YYYY-MM-DD format"
)

var (
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

func Username(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return fmt.Errorf(errUsernameLengthFmt, minUsernameLength, maxUsernameLength)
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf(errUsernameCharsFmt)
	}

	return nil
}

func Password(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf(errPasswordMinLengthFmt, minPasswordLength)
	}

	if len(password) > maxPasswordLength {
		return fmt.Errorf(errPasswordMaxLengthFmt, maxPasswordLength)
	}

	return nil
}

// Email validates an optional address; the empty string is accepted.
func Email(email string) error {
	if email == "" {
		return nil
	}

	if len(email) > maxEmailLength || !emailRegex.MatchString(email) {
		return fmt.Errorf(errEmailInvalidFmt)
	}

	return nil
}

func OrgName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf(errOrgNameEmptyFmt)
	}

	if len(name) > maxOrgNameLen {
		return fmt.Errorf(errOrgNameMaxLengthFmt, maxOrgNameLen)
	}

	return noControlChars("organization name", name)
}

func ProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf(errProjectNameEmptyFmt)
	}

	if len(name) > maxProjectNameLen {
		return fmt.Errorf(errProjectNameMaxLengthFmt, maxProjectNameLen)
	}

	return noControlChars("project name", name)
}

func Storyteller(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf(errStorytellerEmptyFmt)
	}

	if len(name) > maxStorytellerLen {
		return fmt.Errorf(errStorytellerMaxLenFmt, maxStorytellerLen)
	}

	return nil
}

func Tag(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf(errTagNameEmptyFmt)
	}

	if len(name) > maxTagNameLen {
		return fmt.Errorf(errTagNameMaxLengthFmt, maxTagNameLen)
	}

	if len(value) > maxTagValueLen {
		return fmt.Errorf(errTagValueMaxLengthFmt, maxTagValueLen)
	}

	return noControlChars("tag name", name)
}

// Date parses a YYYY-MM-DD date. The empty string yields the zero time.
func Date(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf(errDateFormatFmt)
	}

	return d, nil
}

func noControlChars(field, s string) error {
	for _, char := range s {
		if char < asciiControlStart || char == asciiDelete {
			return fmt.Errorf(errControlCharsFmt, field)
		}
	}
	return nil
}
