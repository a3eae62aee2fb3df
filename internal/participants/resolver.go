// Package participants resolves opaque per-call speaker ids to display
// names, emails, roles and internal/external type using a static mapping
// table loaded once at startup.
package participants

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"clarisync/internal/logging"
	"clarisync/internal/models"
)

// Mapping file columns
const (
	ColumnCallID      = "call_id"
	ColumnPersonID    = "personId"
	ColumnNameOrEmail = "name_or_email"
	ColumnRole        = "role"
	ColumnCompany     = "company"
)

// DefaultInternalMarkers flag a resolved name as belonging to an employee
var DefaultInternalMarkers = []string{"yourcompany.com", "internal", "employee"}

// roleKeywords is checked in order; the first matching role wins
var roleKeywords = []struct {
	role     string
	keywords []string
}{
	{models.RoleDecisionMaker, []string{"ceo", "president", "director", "manager"}},
	{models.RoleTechnicalContact, []string{"engineer", "developer", "technical"}},
	{models.RoleUser, []string{"user", "end user"}},
	{models.RoleInfluencer, []string{"influencer", "stakeholder"}},
}

// Entry is one row of the mapping file
type Entry struct {
	CallID      string
	PersonID    string
	NameOrEmail string
}

type mappingKey struct {
	callID   string
	personID string
}

// Resolver is immutable after construction and safe for concurrent use
type Resolver struct {
	mapping         map[mappingKey]string
	internalMarkers []string
}

// NewResolver builds a resolver from mapping entries. Entries missing any of
// the three key columns are skipped. Nil markers means DefaultInternalMarkers.
func NewResolver(entries []Entry, internalMarkers []string) *Resolver {
	if internalMarkers == nil {
		internalMarkers = DefaultInternalMarkers
	}
	markers := make([]string, 0, len(internalMarkers))
	for _, m := range internalMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}

	r := &Resolver{
		mapping:         make(map[mappingKey]string, len(entries)),
		internalMarkers: markers,
	}
	for _, e := range entries {
		if e.CallID == "" || e.PersonID == "" || e.NameOrEmail == "" {
			continue
		}
		r.mapping[mappingKey{e.CallID, e.PersonID}] = e.NameOrEmail
	}
	return r
}

// LoadFile reads the mapping file at path. A missing or unreadable file is
// not fatal: the resolver falls back to synthesized names for every lookup.
func LoadFile(path string, internalMarkers []string) *Resolver {
	logger := logging.Component("participants")

	if path == "" {
		logger.Warn().Msg("no participant mapping file configured, using fallback names")
		return NewResolver(nil, internalMarkers)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Msg("participant mapping file not found, using fallback names")
		} else {
			logger.Error().Err(err).Str("path", path).Msg("failed to open participant mapping file")
		}
		return NewResolver(nil, internalMarkers)
	}
	defer f.Close()

	entries, err := ReadMapping(f)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to read participant mapping file")
		return NewResolver(nil, internalMarkers)
	}

	r := NewResolver(entries, internalMarkers)
	logger.Info().Int("mappings", r.Len()).Str("path", path).Msg("loaded participant mappings")
	return r
}

// ReadMapping parses a mapping CSV with a header row. Columns other than
// call_id, personId and name_or_email are ignored.
func ReadMapping(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	for _, required := range []string{ColumnCallID, ColumnPersonID, ColumnNameOrEmail} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, column string) string {
		i := index[column]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		entries = append(entries, Entry{
			CallID:      field(record, ColumnCallID),
			PersonID:    field(record, ColumnPersonID),
			NameOrEmail: field(record, ColumnNameOrEmail),
		})
	}
	return entries, nil
}

// Len returns the number of loaded mappings
func (r *Resolver) Len() int {
	return len(r.mapping)
}

// ResolveName returns the mapped name for (callID, personID), or
// "Participant " followed by the last four characters of personID.
func (r *Resolver) ResolveName(callID, personID string) string {
	if name, ok := r.mapping[mappingKey{callID, personID}]; ok {
		return name
	}
	suffix := personID
	if runes := []rune(personID); len(runes) >= 4 {
		suffix = string(runes[len(runes)-4:])
	}
	return "Participant " + suffix
}

// ResolveEmail returns the resolved name when it looks like an address:
// it contains '@' and the part after the first '@' contains '.'.
func (r *Resolver) ResolveEmail(callID, personID string) *string {
	name := r.ResolveName(callID, personID)
	at := strings.Index(name, "@")
	if at < 0 {
		return nil
	}
	domain := name[at+1:]
	if next := strings.Index(domain, "@"); next >= 0 {
		domain = domain[:next]
	}
	if !strings.Contains(domain, ".") {
		return nil
	}
	return &name
}

// ResolveType reports internal when the resolved name contains any internal
// marker, case-insensitively. accountName is currently unused.
func (r *Resolver) ResolveType(callID, personID, accountName string) string {
	name := strings.ToLower(r.ResolveName(callID, personID))
	for _, marker := range r.internalMarkers {
		if strings.Contains(name, marker) {
			return models.ParticipantInternal
		}
	}
	return models.ParticipantExternal
}

// ResolveRole matches the resolved name against keyword sets in a fixed
// order: decision_maker, technical_contact, user, influencer.
func (r *Resolver) ResolveRole(callID, personID, accountName string) string {
	name := strings.ToLower(r.ResolveName(callID, personID))
	for _, rk := range roleKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(name, kw) {
				return rk.role
			}
		}
	}
	return models.RoleUnknown
}
