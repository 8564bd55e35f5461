package startup

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// 入力長の制約（文字数はルーン単位で数える）
const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MaxGoalLength        = 140
	MinDescriptionLength = 100
	MaxDescriptionLength = 500
	MinFields            = 1
	MaxFields            = 3
)

// 検証エラーメッセージ。利用者にそのまま表示される。
const (
	MsgNameRequired             = "Startup name is required (min 2 characters)"
	MsgNameTooLong              = "Startup name too long (max 100 characters)"
	MsgGoalRequired             = "Goal one sentence is required"
	MsgGoalTooLong              = "Goal must be max 140 characters"
	MsgInvalidWebsite           = "Invalid website URL"
	MsgDescriptionRequired      = "Canvas idea description is required"
	MsgDescriptionTooShort      = "Description too short (min 100 characters)"
	MsgDescriptionTooLong       = "Description too long (max 500 characters)"
	MsgFieldsRequired           = "At least 1 field is required"
	MsgTooManyFields            = "Maximum 3 fields allowed"
	MsgFounderNameRequired      = "Founder name is required"
	MsgFounderLinkedinRequired  = "Founder LinkedIn URL is required"
	MsgInvalidFounderLinkedin   = "Invalid founder LinkedIn URL (must include linkedin.com)"
	MsgCofounderLinkedinMissing = "Co-founder LinkedIn URL required when name is provided"
	MsgCofounderNameMissing     = "Co-founder name required when LinkedIn URL is provided"
	MsgInvalidCofounderLinkedin = "Invalid co-founder LinkedIn URL (must include linkedin.com)"
	MsgUnsupportedLogo          = "Logo must be PNG, JPG, or WebP"
	msgLogoProcessingPrefix     = "Error processing logo: "
)

// urlPattern はhttp/httpsのURLを受け付ける。
// ホストはTLDが2〜6文字のドメイン、localhost、IPv4アドレスのいずれか。
var urlPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// Input はスタートアップの作成・更新フォームの値。
type Input struct {
	StartupName           string
	GoalOneSentence       string
	WebsiteURL            string
	CanvasIdeaDescription string
	Fields                []string
	FounderName           string
	FounderLinkedin       string
	CofounderName         string
	CofounderLinkedin     string
}

// ValidURL はURLの形式が正しいかを判定する。
func ValidURL(u string) bool {
	return urlPattern.MatchString(u)
}

// ValidLinkedinURL はlinkedin.comを含む正しい形式のURLかを判定する。
func ValidLinkedinURL(u string) bool {
	return strings.Contains(strings.ToLower(u), "linkedin.com") && ValidURL(u)
}

// Validate は入力を検証し、違反したすべての制約のメッセージを返す。
// 文字列は前後の空白を除いてから検証する。違反がなければnilを返す。
func Validate(in Input) []string {
	var errs []string

	name := strings.TrimSpace(in.StartupName)
	switch n := utf8.RuneCountInString(name); {
	case n < MinNameLength:
		errs = append(errs, MsgNameRequired)
	case n > MaxNameLength:
		errs = append(errs, MsgNameTooLong)
	}

	goal := strings.TrimSpace(in.GoalOneSentence)
	switch {
	case goal == "":
		errs = append(errs, MsgGoalRequired)
	case utf8.RuneCountInString(goal) > MaxGoalLength:
		errs = append(errs, MsgGoalTooLong)
	}

	if website := strings.TrimSpace(in.WebsiteURL); website != "" && !ValidURL(website) {
		errs = append(errs, MsgInvalidWebsite)
	}

	description := strings.TrimSpace(in.CanvasIdeaDescription)
	switch n := utf8.RuneCountInString(description); {
	case n == 0:
		errs = append(errs, MsgDescriptionRequired)
	case n < MinDescriptionLength:
		errs = append(errs, MsgDescriptionTooShort)
	case n > MaxDescriptionLength:
		errs = append(errs, MsgDescriptionTooLong)
	}

	switch n := countFields(in.Fields); {
	case n < MinFields:
		errs = append(errs, MsgFieldsRequired)
	case n > MaxFields:
		errs = append(errs, MsgTooManyFields)
	}

	if strings.TrimSpace(in.FounderName) == "" {
		errs = append(errs, MsgFounderNameRequired)
	}
	founderLinkedin := strings.TrimSpace(in.FounderLinkedin)
	switch {
	case founderLinkedin == "":
		errs = append(errs, MsgFounderLinkedinRequired)
	case !ValidLinkedinURL(founderLinkedin):
		errs = append(errs, MsgInvalidFounderLinkedin)
	}

	cofounderName := strings.TrimSpace(in.CofounderName)
	cofounderLinkedin := strings.TrimSpace(in.CofounderLinkedin)
	if cofounderName != "" && cofounderLinkedin == "" {
		errs = append(errs, MsgCofounderLinkedinMissing)
	}
	if cofounderLinkedin != "" && cofounderName == "" {
		errs = append(errs, MsgCofounderNameMissing)
	}
	if cofounderLinkedin != "" && !ValidLinkedinURL(cofounderLinkedin) {
		errs = append(errs, MsgInvalidCofounderLinkedin)
	}

	return errs
}

// countFields は送信された分野のうち空でないものを数える。重複もそれぞれ数える。
func countFields(fields []string) int {
	n := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n
}

// normalizeFields は分野名の前後の空白を除き、空の値と重複を取り除く。
// 順序は最初に現れた位置を保つ。
func normalizeFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
