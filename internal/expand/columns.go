package expand

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yourorg/routegen/internal/checker"
)

// inferredRowAlias names the generic alias that derives a row shape from a
// table's column map.
const inferredRowAlias = "InferReturning"

func (e *Expander) expandInferredRow(t checker.Type, site checker.Node, c *Cache) (string, bool, error) {
	alias := t.AliasSymbol()
	if alias == nil || alias.Name() != inferredRowAlias {
		return "", false, nil
	}
	args := t.AliasTypeArguments()
	if len(args) != 1 || args[0] == nil {
		return "", false, nil
	}

	props := args[0].Properties()
	if len(props) == 0 {
		return "{}", true, nil
	}

	fields := make([]string, 0, len(props))
	for _, p := range props {
		name := p.Name()
		if strings.HasPrefix(name, "__") {
			continue
		}
		q := ""
		if p.Optional() {
			q = "?"
		}

		text, ok, err := e.columnDataText(p)
		if err != nil {
			return "", false, err
		}
		if !ok {
			pt, err := resolveProperty(p, site)
			if err != nil {
				return "", false, err
			}
			if pt == nil {
				fields = append(fields, FormatPropKey(name)+q+": any")
				continue
			}
			text, err = e.expand(pt, site, c)
			if err != nil {
				return "", false, err
			}
		}
		fields = append(fields, FormatPropKey(name)+q+": "+text)
	}
	if len(fields) == 0 {
		return "{}", true, nil
	}
	return "{ " + strings.Join(fields, "; ") + " }", true, nil
}

// columnDataText reads the declared storage type of a column property: the
// property must be assigned a column builder whose first type argument is a
// config exposing `data` and `notNull`. A column whose notNull resolves to
// the literal false is nullable.
func (e *Expander) columnDataText(p checker.Symbol) (string, bool, error) {
	decl := p.Declaration()
	if decl == nil || decl.Kind() != checker.PropertyAssignment {
		return "", false, nil
	}
	init := decl.Initializer()
	if init == nil {
		return "", false, nil
	}
	initType := init.Type()
	if initType == nil {
		return "", false, nil
	}
	args := initType.TypeArguments()
	if len(args) == 0 || args[0] == nil {
		return "", false, nil
	}
	config := args[0]

	dataProp := config.Property("data")
	if dataProp == nil {
		return "", false, nil
	}
	dataType, err := dataProp.TypeAt(init)
	if err != nil {
		return "", false, errors.Wrapf(err, "resolve column data type of %q", p.Name())
	}
	if dataType == nil {
		return "", false, nil
	}
	e.recordNamed(dataType, 0)
	text := Sanitize(dataType.Text(init))

	if notNullProp := config.Property("notNull"); notNullProp != nil {
		notNullType, err := notNullProp.TypeAt(init)
		if err != nil {
			return "", false, errors.Wrapf(err, "resolve column notNull flag of %q", p.Name())
		}
		if notNullType != nil && notNullType.Text(init) == "false" && !strings.Contains(text, "null") {
			text += " | null"
		}
	}
	return text, true, nil
}
