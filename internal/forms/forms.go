// Package forms parses and validates the HTML forms the site accepts.
package forms

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
)

// NonField collects errors that belong to the form as a whole.
const NonField = "__all__"

// Errors maps a field name to its validation messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Valid() bool {
	return len(e) == 0
}

func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) NonField() []string {
	return e[NonField]
}

func value(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

type Registration struct {
	Username  string
	FullName  string
	Email     string
	Role      models.Role
	Password1 string
	Password2 string
}

func ParseRegistration(r *http.Request) Registration {
	return Registration{
		Username:  value(r, "username"),
		FullName:  value(r, "full_name"),
		Email:     value(r, "email"),
		Role:      models.Role(value(r, "role")),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
}

// UsernameChecker reports whether a username is already taken.
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

func (f *Registration) Validate(ctx context.Context, users UsernameChecker) (Errors, error) {
	errs := Errors{}

	switch {
	case f.Username == "":
		errs.Add("username", "This field is required.")
	case len(f.Username) > 150:
		errs.Add("username", "Ensure this value has at most 150 characters.")
	case !validUsername(f.Username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	default:
		taken, err := users.UsernameExists(ctx, f.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("username", "A user with that username already exists.")
		}
	}

	if f.FullName == "" {
		errs.Add("full_name", "This field is required.")
	} else if len(f.FullName) > 150 {
		errs.Add("full_name", "Ensure this value has at most 150 characters.")
	}

	if f.Email == "" {
		errs.Add("email", "This field is required.")
	} else if !validEmail(f.Email) {
		errs.Add("email", "Enter a valid email address.")
	}

	if !f.Role.Valid() {
		errs.Add("role", "Select a valid choice.")
	}

	switch {
	case f.Password1 == "":
		errs.Add("password1", "This field is required.")
	case f.Password2 == "":
		errs.Add("password2", "This field is required.")
	case f.Password1 != f.Password2:
		errs.Add("password2", "The two password fields didn't match.")
	default:
		for _, msg := range security.ValidatePassword(f.Password1, f.Username) {
			errs.Add("password2", msg)
		}
	}

	return errs, nil
}

func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("@.+-_", r):
		default:
			return false
		}
	}
	return true
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

type Login struct {
	Username string
	Password string
	Role     models.Role
}

func ParseLogin(r *http.Request) Login {
	role := models.Role(value(r, "role"))
	if role == "" {
		role = models.RoleUser
	}
	return Login{
		Username: value(r, "username"),
		Password: r.PostFormValue("password"),
		Role:     role,
	}
}

func (f *Login) Validate() Errors {
	errs := Errors{}
	if f.Username == "" {
		errs.Add("username", "This field is required.")
	}
	if f.Password == "" {
		errs.Add("password", "This field is required.")
	}
	if !f.Role.Valid() {
		errs.Add("role", "Select a valid choice.")
	}
	return errs
}

// Upload is the dashboard evidence form.
type Upload struct {
	FileType models.FileType
	LinkURL  string
	File     multipart.File
	Header   *multipart.FileHeader
}

// ParseUpload reads the multipart body. A missing file is not an error here;
// Validate decides whether the kind needs one.
func ParseUpload(r *http.Request, maxBytes int64) (*Upload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	u := &Upload{
		FileType: models.FileType(value(r, "file_type")),
		LinkURL:  value(r, "link_url"),
	}
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		u.File, u.Header = file, header
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return nil, err
	}
	return u, nil
}

func (u *Upload) HasFile() bool {
	return u.File != nil && u.Header != nil && u.Header.Filename != ""
}

func (u *Upload) Close() {
	if u.File != nil {
		u.File.Close()
	}
}

func (u *Upload) Validate() Errors {
	errs := Errors{}

	if u.FileType == "" {
		errs.Add("file_type", "This field is required.")
	} else if !u.FileType.Valid() {
		errs.Add("file_type", "Select a valid choice.")
	}

	if u.LinkURL != "" && !validURL(u.LinkURL) {
		errs.Add("link_url", "Enter a valid URL.")
	}
	if len(u.LinkURL) > 200 {
		errs.Add("link_url", "Ensure this value has at most 200 characters.")
	}

	switch {
	case u.FileType.NeedsFile() && !u.HasFile():
		errs.Add(NonField, "Please attach a file for image/video uploads.")
	case u.FileType == models.FileTypeLink && u.LinkURL == "":
		errs.Add(NonField, "Please include the URL for link uploads.")
	}
	return errs
}

func validURL(s string) bool {
	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// decimalPattern accepts plain decimal notation. ParseFloat alone also takes NaN,
// Inf and hex floats.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Statistic is the admin form that annotates a project with a metric.
type Statistic struct {
	ProjectID   int
	MetricName  string
	MetricValue float64
	Notes       string

	rawProject string
	rawValue   string
}

func ParseStatistic(r *http.Request) Statistic {
	return Statistic{
		MetricName: value(r, "metric_name"),
		Notes:      value(r, "notes"),
		rawProject: value(r, "project"),
		rawValue:   value(r, "metric_value"),
	}
}

func (f *Statistic) Validate() Errors {
	errs := Errors{}

	if id, err := strconv.Atoi(f.rawProject); err != nil || id <= 0 {
		errs.Add("project", "Select a valid choice.")
	} else {
		f.ProjectID = id
	}

	if f.MetricName == "" {
		errs.Add("metric_name", "This field is required.")
	} else if len(f.MetricName) > 100 {
		errs.Add("metric_name", "Ensure this value has at most 100 characters.")
	}

	switch v, err := strconv.ParseFloat(f.rawValue, 64); {
	case f.rawValue == "":
		errs.Add("metric_value", "This field is required.")
	case err != nil, !decimalPattern.MatchString(f.rawValue):
		errs.Add("metric_value", "Enter a number.")
	case decimalPlaces(f.rawValue) > 2:
		errs.Add("metric_value", "Ensure that there are no more than 2 decimal places.")
	case abs(v) >= 1e8:
		errs.Add("metric_value", "Ensure that there are no more than 10 digits in total.")
	default:
		f.MetricValue = v
	}

	return errs
}

func decimalPlaces(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ValidImage sniffs the first bytes of f and rewinds it.
func ValidImage(f multipart.File) bool {
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(head[:n]), "image/")
}
