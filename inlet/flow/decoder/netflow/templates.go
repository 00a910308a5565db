// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package netflow

// TemplateKey identifies a template inside a template store.
type TemplateKey struct {
	Version  uint16
	DomainID uint32
	ID       uint16
}

// FieldSpecifier describes one field of a template. EnterpriseNumber is
// 0 for IANA fields.
type FieldSpecifier struct {
	Type             uint16
	Length           uint16
	EnterpriseNumber uint32
}

// variableLength is the field length announcing a variable-length field.
const variableLength = 65535

// Template is an ordered list of field specifiers learned from an
// exporter. Data sets for options templates do not produce flows.
type Template struct {
	Fields  []FieldSpecifier
	Options bool
}

// minLength returns the minimal number of bytes needed to decode one
// record. Variable-length fields take at least one byte.
func (t Template) minLength() int {
	length := 0
	for _, f := range t.Fields {
		if f.Length == variableLength {
			length++
			continue
		}
		length += int(f.Length)
	}
	return length
}

// TemplateStore holds the templates of a single exporter. It is not safe
// for concurrent use.
type TemplateStore struct {
	templates map[TemplateKey]Template
}

// NewTemplateStore creates an empty template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		templates: make(map[TemplateKey]Template),
	}
}

// Upsert adds or replaces a template.
func (ts *TemplateStore) Upsert(key TemplateKey, template Template) {
	ts.templates[key] = template
}

// Withdraw removes a template. Removing an unknown template is a no-op.
func (ts *TemplateStore) Withdraw(key TemplateKey) {
	delete(ts.templates, key)
}

// WithdrawAll removes all templates of an observation domain. Options
// tells if options templates or regular templates are removed.
func (ts *TemplateStore) WithdrawAll(version uint16, domainID uint32, options bool) {
	for key, template := range ts.templates {
		if key.Version == version && key.DomainID == domainID && template.Options == options {
			delete(ts.templates, key)
		}
	}
}

// Lookup returns the template matching the provided key.
func (ts *TemplateStore) Lookup(key TemplateKey) (Template, bool) {
	t, ok := ts.templates[key]
	return t, ok
}

// Len returns the number of templates in the store.
func (ts *TemplateStore) Len() int {
	return len(ts.templates)
}
