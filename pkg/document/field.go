package document

import (
	"fmt"
	"slices"
)

// FieldDescription is the indexing policy of a single field.
//
// Values are immutable; use a Builder to create them. Identifier fields are
// meant to be matched exactly and SetIdentifier turns analysis off. Calling
// SetAnalyzed(true) afterwards is tolerated rather than supported: the
// indexer then matches the identifier through a parsed query, which may
// replace entries whose values only differ after analysis.
type FieldDescription struct {
	analyzed      bool
	boostFactor   float64
	identifier    bool
	inFullContent *bool
}

// Default is the description used for fields without an explicit entry:
// analyzed, boost 1, not an identifier, searchable in full content.
var Default = FieldDescription{
	analyzed:    true,
	boostFactor: 1,
}

// Analyzed reports whether the field text is tokenized.
func (f FieldDescription) Analyzed() bool {
	return f.analyzed
}

// BoostFactor returns the relevance multiplier of the field.
func (f FieldDescription) BoostFactor() float64 {
	return f.boostFactor
}

// Identifier reports whether the field identifies a document version for
// re-indexing.
func (f FieldDescription) Identifier() bool {
	return f.identifier
}

// InFullContent returns the explicit full-content setting, if any.
func (f FieldDescription) InFullContent() (bool, bool) {
	if f.inFullContent == nil {
		return false, false
	}
	return *f.inFullContent, true
}

// SearchableInFullContent reports whether the field value is appended to
// the full-content field. Without an explicit setting only analyzed,
// non-identifier fields are.
func (f FieldDescription) SearchableInFullContent() bool {
	if f.inFullContent != nil {
		return *f.inFullContent
	}
	return f.analyzed && !f.identifier
}

// Equal compares two descriptions attribute by attribute.
func (f FieldDescription) Equal(o FieldDescription) bool {
	if f.analyzed != o.analyzed || f.boostFactor != o.boostFactor || f.identifier != o.identifier {
		return false
	}
	a, aok := f.InFullContent()
	b, bok := o.InFullContent()
	return aok == bok && a == b
}

func (f FieldDescription) String() string {
	return fmt.Sprintf("(boost=%g;analyzed=%t;identifier=%t;searchable=%t)",
		f.boostFactor, f.analyzed, f.identifier, f.SearchableInFullContent())
}

// Builder accumulates settings for a FieldDescription.
type Builder struct {
	desc FieldDescription
}

// NewBuilder returns a builder initialized with Default.
func NewBuilder() *Builder {
	return &Builder{desc: Default}
}

// BuilderFrom returns a builder initialized with an existing description.
func BuilderFrom(f FieldDescription) *Builder {
	b := &Builder{desc: f}
	if f.inFullContent != nil {
		v := *f.inFullContent
		b.desc.inFullContent = &v
	}
	return b
}

// SetAnalyzed sets whether the field is tokenized.
func (b *Builder) SetAnalyzed(analyzed bool) *Builder {
	b.desc.analyzed = analyzed
	return b
}

// SetBoostFactor sets the relevance multiplier of the field.
func (b *Builder) SetBoostFactor(boost float64) *Builder {
	b.desc.boostFactor = boost
	return b
}

// SetIdentifier marks the field as an identifier. Marking a field as an
// identifier also turns analysis off.
func (b *Builder) SetIdentifier(identifier bool) *Builder {
	b.desc.identifier = identifier
	if identifier {
		b.desc.analyzed = false
	}
	return b
}

// SetInFullContent explicitly includes or excludes the field from the
// full-content field.
func (b *Builder) SetInFullContent(in bool) *Builder {
	b.desc.inFullContent = &in
	return b
}

// ResetInFullContent restores the derived full-content behavior.
func (b *Builder) ResetInFullContent() *Builder {
	b.desc.inFullContent = nil
	return b
}

// Build returns an immutable snapshot of the current settings. The builder
// may be reused afterwards without affecting the returned value.
func (b *Builder) Build() FieldDescription {
	d := b.desc
	if d.inFullContent != nil {
		v := *d.inFullContent
		d.inFullContent = &v
	}
	return d
}

// Descriptions maps field names to their indexing policy.
type Descriptions map[string]FieldDescription

// Lookup returns the description of the field, or Default.
func (d Descriptions) Lookup(field string) FieldDescription {
	if f, ok := d[field]; ok {
		return f
	}
	return Default
}

// Identifiers returns the names of all identifier fields, sorted.
func (d Descriptions) Identifiers() []string {
	var ids []string
	for name, f := range d {
		if f.identifier {
			ids = append(ids, name)
		}
	}
	slices.Sort(ids)
	return ids
}
