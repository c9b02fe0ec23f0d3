package user

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/grupka/grupka/core"
	appfs "github.com/grupka/grupka/fs"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords []string

	pwdTexts = map[string]string{
		pwdMinLenTag:     pwdMinLenText,
		pwdNoSpaceTag:    pwdNoSpaceText,
		pwdNotAllNumTag:  pwdNotAllNumText,
		pwdComplexityTag: pwdComplexityText,
		pwdAttrSimTag:    pwdAttrSimText,
		pwdNoCommonTag:   pwdNoCommonText,
	}
)

func init() {
	loadCommonPasswords()

	core.Validate.RegisterStructValidation(userStructValidation, NewUser{}, ResetUserPassword{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(core.Validate, core.Translator, tag, text)
	}
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open("common-passwords.txt.gz")
	if err != nil {
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		return
	}
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords = append(commonPasswords, strings.ToLower(pwd))
		}
	}
	sort.Strings(commonPasswords)
}

// userStructValidation does struct level validation on NewUser and ResetUserPassword structs.
func userStructValidation(sl validator.StructLevel) {
	var tag, pwd string
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		pwd = usr.Password
		tag = checkPassword(pwd, usr.DisplayName, usr.Email)
	case ResetUserPassword:
		pwd = usr.Password
		tag = checkPassword(pwd) // user attributes are checked once the user is known
	}
	if tag != "" && pwd != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// PasswordPolicyError returns a validation error if pwd breaks the password policy for usr.
func PasswordPolicyError(pwd string, usr User) error {
	if tag := checkPassword(pwd, usr.DisplayName, usr.Email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdTexts[tag]})
	}
	return nil
}

// checkPassword applies the password policy to provided password and returns the tag of the failing rule:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func checkPassword(pwd string, attrs ...string) string {
	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		return pwdMinLenTag
	}
	for _, char := range runes {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == len(runes) {
		return pwdNotAllNumTag
	}

	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		return pwdComplexityTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}

	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdNoCommonTag
	}
	return ""
}
