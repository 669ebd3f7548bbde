package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
	"github.com/khabaroff/staff-cards/src/validators"
)

// MaxImportRows caps a single CSV import
const MaxImportRows = 1000

// CSVTemplate is served at /api/csv-template
const CSVTemplate = "first_name,last_name,email,phone,whatsapp,job_title,department,website,profile_photo_url,linkedin\n" +
	"John,Doe,john.doe@example.com,+1234567890,+1234567890,Software Engineer,Engineering,https://example.com,https://example.com/photo.jpg,https://www.linkedin.com/in/johndoe\n"

// socialColumns maps optional CSV columns to link labels. Order is the link sort order.
var socialColumns = []struct {
	column string
	label  string
}{
	{"linkedin", "LinkedIn"},
	{"twitter", "Twitter"},
	{"facebook", "Facebook"},
	{"instagram", "Instagram"},
	{"github", "GitHub"},
	{"youtube", "YouTube"},
}

var requiredColumns = []string{"first_name", "last_name", "email"}

// RowError reports a problem on one CSV line. Line 1 is the header.
type RowError struct {
	Row    int               `json:"row"`
	Fields map[string]string `json:"fields"`
}

// ImportError is returned when any row fails validation. Nothing is inserted.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("csv import rejected: %d invalid row(s)", len(e.Rows))
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ImportError) Is(target error) bool {
	return target == ErrValidation
}

// ImportResult summarises a successful import
type ImportResult struct {
	Count     int                `json:"count"`
	Employees []*models.Employee `json:"employees"`
}

// ImportService bulk-creates employees from CSV
type ImportService struct {
	employees repositories.EmployeeRepository
}

// NewImportService creates a new import service
func NewImportService(employees repositories.EmployeeRepository) *ImportService {
	return &ImportService{employees: employees}
}

// Import parses r and inserts every row in one transaction
func (s *ImportService) Import(ctx context.Context, actor *models.AdminUser, r io.Reader) (*ImportResult, error) {
	if err := authz.Authorize(authz.ActorFrom(actor), authz.ActionImportCSV, nil); err != nil {
		return nil, err
	}

	employees, err := ParseEmployeesCSV(r)
	if err != nil {
		return nil, err
	}

	if err := s.employees.ImportBatch(ctx, employees); err != nil {
		return nil, upstream("import employees", err)
	}

	logger := logging.NewLogger("import")
	logger.Info().Int("count", len(employees)).Str("by", actor.Email).Msg("employees imported")
	return &ImportResult{Count: len(employees), Employees: employees}, nil
}

// ParseEmployeesCSV reads a header row followed by one employee per line.
// Blank lines are skipped. All rows are validated before any is returned.
func ParseEmployeesCSV(r io.Reader) ([]*models.Employee, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, NewValidationError("file", "is empty")
	}
	if err != nil {
		return nil, NewValidationError("file", "is not valid CSV: "+err.Error())
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[name] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, NewValidationError("file", "missing columns: "+strings.Join(missing, ", "))
	}

	var (
		employees []*models.Employee
		rowErrs   []RowError
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, NewValidationError("file", "is not valid CSV: "+err.Error())
			}
			rowErrs = append(rowErrs, RowError{Row: perr.StartLine, Fields: map[string]string{"row": perr.Err.Error()}})
			continue
		}
		row, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		if len(employees)+len(rowErrs) >= MaxImportRows {
			return nil, NewValidationError("file", fmt.Sprintf("exceeds %d rows", MaxImportRows))
		}

		e, fields := parseRow(index, record)
		if len(fields) > 0 {
			rowErrs = append(rowErrs, RowError{Row: row, Fields: fields})
			continue
		}
		employees = append(employees, e)
	}

	if len(rowErrs) > 0 {
		return nil, &ImportError{Rows: rowErrs}
	}
	if len(employees) == 0 {
		return nil, NewValidationError("file", "contains no employees")
	}
	return employees, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRow(index map[string]int, record []string) (*models.Employee, map[string]string) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	req := &validators.EmployeeRequest{
		FirstName:  get("first_name"),
		LastName:   get("last_name"),
		Email:      get("email"),
		Phone:      get("phone"),
		WhatsApp:   get("whatsapp"),
		JobTitle:   get("job_title"),
		Department: get("department"),
		Website:    get("website"),
		Company:    get("company"),
		PhotoURL:   get("profile_photo_url"),
	}
	req.Normalize()

	var fields map[string]string
	if errs := validators.Validate(req); len(errs) > 0 {
		fields = validators.Fields(errs)
	}

	e := &models.Employee{IsActive: true}
	req.Apply(e)

	for order, social := range socialColumns {
		raw := get(social.column)
		if raw == "" {
			continue
		}
		link := &validators.LinkRequest{Label: social.label, URL: raw, IconType: social.column, SortOrder: order}
		link.Normalize()
		if errs := validators.Validate(link); len(errs) > 0 {
			if fields == nil {
				fields = make(map[string]string)
			}
			fields[social.column] = "must be a valid URL"
			continue
		}
		l := models.EmployeeLink{IsActive: true}
		link.Apply(&l)
		e.Links = append(e.Links, l)
	}
	return e, fields
}
