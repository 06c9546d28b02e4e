package vacancy

import "fmt"

// Column labels used by the workbook and any other tabular sink.
const (
	LabelID        = "id"
	LabelTitle     = "Вакансия"
	LabelLevel     = "Уровень"
	LabelEmployer  = "Работодатель"
	LabelLocation  = "Город"
	LabelSalaryMin = "Минимальная зарплата"
	LabelSalaryMax = "Максимальная зарплата"
	LabelRemote    = "Удаленно"
	LabelHybrid    = "Гибридно"
	LabelURL       = "Ссылка"
)

var columns = []string{
	LabelID,
	LabelTitle,
	LabelLevel,
	LabelEmployer,
	LabelLocation,
	LabelSalaryMin,
	LabelSalaryMax,
	LabelRemote,
	LabelHybrid,
	LabelURL,
}

// Columns returns the display labels in projection order.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Field is one labelled value of a record. Value is nil for absent data.
type Field struct {
	Label string
	Value any
}

// Fields projects the record onto its labelled columns, in Columns order.
func (r *Record) Fields() []Field {
	return []Field{
		{Label: LabelID, Value: r.ID},
		{Label: LabelTitle, Value: r.Title},
		{Label: LabelLevel, Value: r.Levels.String()},
		{Label: LabelEmployer, Value: r.Employer},
		{Label: LabelLocation, Value: optional(r.Location)},
		{Label: LabelSalaryMin, Value: optional(r.SalaryMin)},
		{Label: LabelSalaryMax, Value: optional(r.SalaryMax)},
		{Label: LabelRemote, Value: r.Remote},
		{Label: LabelHybrid, Value: r.Hybrid},
		{Label: LabelURL, Value: r.URL},
	}
}

// Values returns only the projected values, in Columns order.
func (r *Record) Values() []any {
	fields := r.Fields()
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f.Value
	}
	return out
}

// FromFields rebuilds a record from a labelled projection. Unknown labels are
// rejected; missing labels leave the zero value.
func FromFields(fields []Field) (*Record, error) {
	rec := &Record{}
	for _, f := range fields {
		if err := rec.assign(f); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (r *Record) assign(f Field) error {
	var err error
	switch f.Label {
	case LabelID:
		r.ID, err = as[int](f)
	case LabelTitle:
		r.Title, err = as[string](f)
	case LabelLevel:
		var raw string
		if raw, err = as[string](f); err == nil {
			r.Levels, err = ParseLevelSet(raw)
		}
	case LabelEmployer:
		r.Employer, err = as[string](f)
	case LabelLocation:
		r.Location, err = asOptional[string](f)
	case LabelSalaryMin:
		r.SalaryMin, err = asOptional[int](f)
	case LabelSalaryMax:
		r.SalaryMax, err = asOptional[int](f)
	case LabelRemote:
		r.Remote, err = as[bool](f)
	case LabelHybrid:
		r.Hybrid, err = as[bool](f)
	case LabelURL:
		r.URL, err = as[string](f)
	default:
		return fmt.Errorf("unknown column %q", f.Label)
	}
	return err
}

func optional[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func as[T any](f Field) (T, error) {
	v, ok := f.Value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("column %q: unexpected value type %T", f.Label, f.Value)
	}
	return v, nil
}

func asOptional[T any](f Field) (*T, error) {
	if f.Value == nil {
		return nil, nil
	}
	v, err := as[T](f)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
