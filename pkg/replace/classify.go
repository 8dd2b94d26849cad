package replace

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Classifier selects the fields of a table that a search runs over
type Classifier struct {
	client  table.Client
	include []string
	exclude []string
}

// NewClassifier validates the filter globs. An empty include list keeps every text field.
func NewClassifier(client table.Client, filter config.FieldFilter) (*Classifier, error) {
	for _, p := range append(append([]string{}, filter.Include...), filter.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid field glob %q", p)
		}
	}
	return &Classifier{
		client:  client,
		include: filter.Include,
		exclude: filter.Exclude,
	}, nil
}

// Classify lists the table's fields once and returns the text fields that pass
// the filter, in the order the API returned them.
func (c *Classifier) Classify(ctx context.Context, tableID string) ([]table.Field, error) {
	logger := zerolog.Ctx(ctx)

	fields, err := c.client.ListFields(ctx, tableID)
	if err != nil {
		return nil, newFault(ErrSchemaFetch, err, "table %s", tableID)
	}

	var text []table.Field
	for _, f := range fields {
		if f.Kind != table.KindText {
			continue
		}
		if !c.allowed(f.Name) {
			logger.Debug().Str("field", f.Name).Msg("field filtered out")
			continue
		}
		text = append(text, f)
	}

	logger.Debug().Int("fields", len(fields)).Int("text_fields", len(text)).Msg("classified fields")

	if len(text) == 0 {
		return nil, newFault(ErrNoTextFields, nil, "table %s", tableID)
	}
	return text, nil
}

func (c *Classifier) allowed(name string) bool {
	// patterns were validated in NewClassifier, so Match cannot fail
	for _, p := range c.exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return false
		}
	}
	if len(c.include) == 0 {
		return true
	}
	for _, p := range c.include {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// FieldNames returns the names of fields in order
func FieldNames(fields []table.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
