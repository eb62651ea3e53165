package security

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "welcome1": {}, "admin123": {},
	"trustno1": {}, "superman": {}, "starwars": {}, "passw0rd": {}, "abc12345": {},
	"letmein1": {}, "11111111": {}, "00000000": {}, "qwerty12": {}, "monkey123": {},
	"dragon123": {}, "master123": {}, "whatever": {}, "michelle": {}, "jennifer": {},
}

// PasswordProblems lists the strength rules password breaks. email is used to
// reject passwords equal to the address or its local part.
func PasswordProblems(password, email string) []string {
	var problems []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if password != "" && isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if similarToEmail(password, email) {
		problems = append(problems, "The password is too similar to the email address.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "This password is too common.")
	}
	return problems
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarToEmail(password, email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false
	}
	candidate := strings.ToLower(password)
	local, _, _ := strings.Cut(email, "@")
	return candidate == email || candidate == local
}
