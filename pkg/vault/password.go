package vault

import "unicode"

// MinPasswordLength is the shortest acceptable password.
const MinPasswordLength = 8

// PasswordProblems lists every way p fails the complexity policy: minimum
// length, plus at least one uppercase letter, lowercase letter, digit and
// symbol. An empty result means p is acceptable.
func PasswordProblems(p string) []string {
	var upper, lower, digit, symbol bool
	n := 0
	for _, r := range p {
		n++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var problems []string
	if n < MinPasswordLength {
		problems = append(problems, "Password must be at least 8 characters long.")
	}
	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter.")
	}
	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter.")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one digit.")
	}
	if !symbol {
		problems = append(problems, "Password must contain at least one symbol.")
	}
	return problems
}
